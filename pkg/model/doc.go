// Package model defines the core data types shared across the RoomTone
// client: targets (controllable devices addressed by a normalized host key),
// parameter records (equalizer filters, volume, mute, dynamics settings),
// and the station catalog types.
//
// # Targets
//
// Every controllable device is a [Target] identified by a [TargetID], the
// lowercased host portion of its network address. The reserved identity
// [LocalTargetID] always refers to the appliance the client is connected to.
//
// # Parameters
//
// A parameter value is owned by exactly one target at any instant. Edits are
// addressed by [ParamKey], the (target, parameter name) pair. The parameter
// name space is flat: "volume", "mute", "eq_band_00".."eq_band_09",
// "compressor", "loudness", "delay".
package model
