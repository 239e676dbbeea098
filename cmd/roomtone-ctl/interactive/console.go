// Package interactive provides the interactive command-line interface
// for the roomtone controller.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/roomtone/roomtone-go/pkg/model"
	"github.com/roomtone/roomtone-go/pkg/service"
)

// Console handles interactive mode for roomtone-ctl.
type Console struct {
	svc *service.ControllerService
	rl  *readline.Instance
}

// New creates a new interactive console.
func New(svc *service.ControllerService) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "roomtone> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{svc: svc, rl: rl}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "status":
			c.cmdStatus(ctx, args)

		case "devices", "list", "ls":
			c.cmdDevices()

		case "volume", "vol", "v":
			c.cmdVolume(args)

		case "mute", "m":
			c.cmdMute(args)

		case "eq":
			c.cmdEq(ctx, args)

		case "comp", "compressor":
			c.cmdCompressor(args)

		case "loudness":
			c.cmdLoudness(args)

		case "delay":
			c.cmdDelay(args)

		case "zone", "z":
			c.cmdZone(ctx, args)

		case "search", "stations":
			c.cmdSearch(ctx, args)

		case "faults":
			c.cmdFaults(args)

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
Roomtone Controller Commands:
  Playback:
    volume <target> <db>             - Set volume in dB
    mute <target> on|off             - Set mute
    eq <target> <band> <freq> <gain> <q> [type]
                                     - Set an equalizer band
    eq <target> reset                - Reset all bands to defaults
    comp <target> on|off [threshold] [ratio]
                                     - Configure the compressor
    loudness <target> on|off [gain]  - Configure loudness compensation
    delay <target> <ms>              - Set output delay (0 disables)

  Zones:
    zone list                        - List zones
    zone create <name> <t1> <t2> ... - Link devices into a zone
    zone members <zone-id> <t1> ...  - Replace zone membership
    zone remove <zone-id> <target>   - Unlink one device
    zone delete <zone-id>            - Dissolve a zone
    zone rename <zone-id> <name>     - Rename a zone

  Catalog:
    search [term]                    - Search the station catalog

  General:
    devices                          - List known devices
    status [target]                  - Show controller or device status
    faults [clear]                   - Show or clear propagation failures
    help                             - Show this help
    quit                             - Exit

  Targets:
    Use "local" for the appliance itself, or a hostname like
    kitchen.local. Partial names match.`)
}

// cmdStatus handles the status command.
func (c *Console) cmdStatus(ctx context.Context, args []string) {
	if len(args) > 0 {
		target := c.resolveTarget(args[0])
		if target == "" {
			fmt.Fprintf(c.rl.Stdout(), "Device not found: %s\n", args[0])
			return
		}
		statusCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		status, err := c.svc.DeviceStatus(statusCtx, target)
		cancel()
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Status read failed: %v\n", err)
			return
		}
		fmt.Fprintf(c.rl.Stdout(), "\nDevice: %s\n", target)
		fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
		fmt.Fprintf(c.rl.Stdout(), "  Name:     %s\n", status.Name)
		fmt.Fprintf(c.rl.Stdout(), "  Model:    %s\n", status.Model)
		fmt.Fprintf(c.rl.Stdout(), "  Firmware: %s\n", status.Firmware)
		fmt.Fprintf(c.rl.Stdout(), "  Volume:   %.1f dB\n", status.VolumeDb)
		fmt.Fprintf(c.rl.Stdout(), "  Muted:    %v\n", status.Muted)
		if status.ZoneID != "" {
			fmt.Fprintf(c.rl.Stdout(), "  Zone:     %s\n", status.ZoneID)
		}
		return
	}

	fmt.Fprintln(c.rl.Stdout(), "\nController Status")
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(c.rl.Stdout(), "  Service State: %s\n", c.svc.State())
	fmt.Fprintf(c.rl.Stdout(), "  Devices:       %d\n", len(c.svc.Targets()))
	fmt.Fprintf(c.rl.Stdout(), "  Zones:         %d\n", len(c.svc.Zones()))
	fmt.Fprintf(c.rl.Stdout(), "  Faults:        %d\n", len(c.svc.Faults()))
}

// cmdDevices handles the devices command.
func (c *Console) cmdDevices() {
	targets := c.svc.Targets()
	if len(targets) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No devices known")
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "\nKnown Devices (%d):\n", len(targets))
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	for _, t := range targets {
		status := "reachable"
		if !t.Reachable {
			status = "unreachable"
		}
		fmt.Fprintf(c.rl.Stdout(), "  %s (%s, %s)", t.ID, t.Name, status)
		if z := c.svc.ZoneOf(t.ID); z != nil {
			fmt.Fprintf(c.rl.Stdout(), " [zone %s]", z.Name)
		}
		fmt.Fprintln(c.rl.Stdout())
	}
}

// cmdVolume handles the volume command.
func (c *Console) cmdVolume(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: volume <target> <db>")
		return
	}

	target := c.resolveTarget(args[0])
	if target == "" {
		fmt.Fprintf(c.rl.Stdout(), "Device not found: %s\n", args[0])
		return
	}

	db, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid volume: %v\n", err)
		return
	}

	c.svc.SetVolume(target, db)
	c.svc.EndVolumeEdit(target)
	fmt.Fprintf(c.rl.Stdout(), "Volume on %s: %.1f dB\n", target, db)
}

// cmdMute handles the mute command.
func (c *Console) cmdMute(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: mute <target> on|off")
		return
	}

	target := c.resolveTarget(args[0])
	if target == "" {
		fmt.Fprintf(c.rl.Stdout(), "Device not found: %s\n", args[0])
		return
	}

	muted, err := parseOnOff(args[1])
	if err != nil {
		fmt.Fprintln(c.rl.Stdout(), err)
		return
	}

	c.svc.SetMute(target, muted)
	if muted {
		fmt.Fprintf(c.rl.Stdout(), "%s muted\n", target)
	} else {
		fmt.Fprintf(c.rl.Stdout(), "%s unmuted\n", target)
	}
}

// cmdEq handles the eq command.
func (c *Console) cmdEq(ctx context.Context, args []string) {
	if len(args) >= 2 && strings.EqualFold(args[1], "reset") {
		target := c.resolveTarget(args[0])
		if target == "" {
			fmt.Fprintf(c.rl.Stdout(), "Device not found: %s\n", args[0])
			return
		}
		resetCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := c.svc.ResetFilters(resetCtx, target)
		cancel()
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Reset failed: %v\n", err)
			return
		}
		fmt.Fprintf(c.rl.Stdout(), "Filters on %s reset to defaults\n", target)
		return
	}

	if len(args) < 5 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: eq <target> <band> <freq> <gain> <q> [type]")
		fmt.Fprintln(c.rl.Stdout(), "       eq <target> reset")
		fmt.Fprintln(c.rl.Stdout(), "  Example: eq local 0 120 -3.5 1.4 peaking")
		return
	}

	target := c.resolveTarget(args[0])
	if target == "" {
		fmt.Fprintf(c.rl.Stdout(), "Device not found: %s\n", args[0])
		return
	}

	bandNum, err := strconv.Atoi(args[1])
	if err != nil || bandNum < 0 {
		fmt.Fprintf(c.rl.Stdout(), "Invalid band number: %s\n", args[1])
		return
	}
	freq, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid frequency: %v\n", err)
		return
	}
	gain, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid gain: %v\n", err)
		return
	}
	q, err := strconv.ParseFloat(args[4], 64)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid Q: %v\n", err)
		return
	}

	filterType := model.FilterPeaking
	if len(args) > 5 {
		filterType, err = parseFilterType(args[5])
		if err != nil {
			fmt.Fprintln(c.rl.Stdout(), err)
			return
		}
	}

	band := model.FilterBand{
		ID:        model.FilterParam(bandNum),
		Frequency: freq,
		Gain:      gain,
		Q:         q,
		Type:      filterType,
		Enabled:   true,
	}
	c.svc.SetFilterBand(target, band)
	c.svc.EndFilterEdit(target, band.ID)
	fmt.Fprintf(c.rl.Stdout(), "%s %s: %.0f Hz, %+.1f dB, Q %.2f (%s)\n",
		target, band.ID, freq, gain, q, filterType)
}

// cmdCompressor handles the comp command.
func (c *Console) cmdCompressor(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: comp <target> on|off [threshold-db] [ratio]")
		return
	}

	target := c.resolveTarget(args[0])
	if target == "" {
		fmt.Fprintf(c.rl.Stdout(), "Device not found: %s\n", args[0])
		return
	}

	enabled, err := parseOnOff(args[1])
	if err != nil {
		fmt.Fprintln(c.rl.Stdout(), err)
		return
	}

	settings := model.CompressorSettings{Enabled: enabled, Threshold: -20, Ratio: 2}
	if len(args) > 2 {
		if settings.Threshold, err = strconv.ParseFloat(args[2], 64); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid threshold: %v\n", err)
			return
		}
	}
	if len(args) > 3 {
		if settings.Ratio, err = strconv.ParseFloat(args[3], 64); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid ratio: %v\n", err)
			return
		}
	}

	c.svc.SetCompressor(target, settings)
	fmt.Fprintln(c.rl.Stdout(), "OK")
}

// cmdLoudness handles the loudness command.
func (c *Console) cmdLoudness(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: loudness <target> on|off [gain-db]")
		return
	}

	target := c.resolveTarget(args[0])
	if target == "" {
		fmt.Fprintf(c.rl.Stdout(), "Device not found: %s\n", args[0])
		return
	}

	enabled, err := parseOnOff(args[1])
	if err != nil {
		fmt.Fprintln(c.rl.Stdout(), err)
		return
	}

	settings := model.LoudnessSettings{Enabled: enabled}
	if len(args) > 2 {
		if settings.Gain, err = strconv.ParseFloat(args[2], 64); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid gain: %v\n", err)
			return
		}
	}

	c.svc.SetLoudness(target, settings)
	fmt.Fprintln(c.rl.Stdout(), "OK")
}

// cmdDelay handles the delay command.
func (c *Console) cmdDelay(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: delay <target> <ms>")
		return
	}

	target := c.resolveTarget(args[0])
	if target == "" {
		fmt.Fprintf(c.rl.Stdout(), "Device not found: %s\n", args[0])
		return
	}

	millis, err := strconv.ParseFloat(args[1], 64)
	if err != nil || millis < 0 {
		fmt.Fprintf(c.rl.Stdout(), "Invalid delay: %s\n", args[1])
		return
	}

	c.svc.SetDelay(target, model.DelaySettings{Enabled: millis > 0, Millis: millis})
	fmt.Fprintln(c.rl.Stdout(), "OK")
}

// cmdZone handles the zone command and its subcommands.
func (c *Console) cmdZone(ctx context.Context, args []string) {
	if len(args) == 0 {
		args = []string{"list"}
	}

	zoneCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch strings.ToLower(args[0]) {
	case "list", "ls":
		zones := c.svc.Zones()
		if len(zones) == 0 {
			fmt.Fprintln(c.rl.Stdout(), "No zones")
			return
		}
		for _, z := range zones {
			members := make([]string, len(z.Members))
			for i, m := range z.Members {
				members[i] = string(m)
			}
			fmt.Fprintf(c.rl.Stdout(), "  %s: %q [%s] source=%s\n",
				z.ID, z.Name, strings.Join(members, ", "), z.Source)
		}

	case "create":
		if len(args) < 4 {
			fmt.Fprintln(c.rl.Stdout(), "Usage: zone create <name> <target> <target> ...")
			return
		}
		members := c.resolveTargets(args[2:])
		if members == nil {
			return
		}
		z, err := c.svc.CreateZone(zoneCtx, args[1], members, members[0])
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Zone creation failed: %v\n", err)
			return
		}
		fmt.Fprintf(c.rl.Stdout(), "Zone %s created with %d members\n", z.ID, len(z.Members))

	case "members":
		if len(args) < 3 {
			fmt.Fprintln(c.rl.Stdout(), "Usage: zone members <zone-id> <target> <target> ...")
			return
		}
		members := c.resolveTargets(args[2:])
		if members == nil {
			return
		}
		if err := c.svc.ReplaceZoneMembers(zoneCtx, args[1], members); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Membership change failed: %v\n", err)
			return
		}
		fmt.Fprintln(c.rl.Stdout(), "OK")

	case "remove":
		if len(args) < 3 {
			fmt.Fprintln(c.rl.Stdout(), "Usage: zone remove <zone-id> <target>")
			return
		}
		target := c.resolveTarget(args[2])
		if target == "" {
			fmt.Fprintf(c.rl.Stdout(), "Device not found: %s\n", args[2])
			return
		}
		if err := c.svc.RemoveZoneMember(zoneCtx, args[1], target); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Remove failed: %v\n", err)
			return
		}
		fmt.Fprintln(c.rl.Stdout(), "OK")

	case "delete":
		if len(args) < 2 {
			fmt.Fprintln(c.rl.Stdout(), "Usage: zone delete <zone-id>")
			return
		}
		if err := c.svc.DeleteZone(zoneCtx, args[1]); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Delete failed: %v\n", err)
			return
		}
		fmt.Fprintln(c.rl.Stdout(), "Zone dissolved")

	case "rename":
		if len(args) < 3 {
			fmt.Fprintln(c.rl.Stdout(), "Usage: zone rename <zone-id> <name>")
			return
		}
		name := strings.Join(args[2:], " ")
		if err := c.svc.RenameZone(zoneCtx, args[1], name); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Rename failed: %v\n", err)
			return
		}
		fmt.Fprintln(c.rl.Stdout(), "OK")

	default:
		fmt.Fprintf(c.rl.Stdout(), "Unknown zone subcommand: %s\n", args[0])
	}
}

// cmdSearch handles the search command.
func (c *Console) cmdSearch(ctx context.Context, args []string) {
	query := model.StationQuery{Search: strings.Join(args, " ")}

	searchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	res := c.svc.Stations(searchCtx, query)
	cancel()

	if res.Failed {
		fmt.Fprintln(c.rl.Stdout(), "Catalog unavailable")
		return
	}
	if res.Aborted {
		return
	}
	if len(res.Items) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No stations found")
		return
	}

	shown := res.Items
	if len(shown) > 20 {
		shown = shown[:20]
	}
	for i, station := range shown {
		fmt.Fprintf(c.rl.Stdout(), "  %2d. %s", i+1, station.Name)
		if station.Genre != "" {
			fmt.Fprintf(c.rl.Stdout(), " (%s)", station.Genre)
		}
		fmt.Fprintln(c.rl.Stdout())
	}
	if len(res.Items) > len(shown) {
		fmt.Fprintf(c.rl.Stdout(), "  ... and %d more\n", len(res.Items)-len(shown))
	}
	if res.Stale {
		fmt.Fprintln(c.rl.Stdout(), "  (cached results, refresh in progress)")
	}
}

// cmdFaults handles the faults command.
func (c *Console) cmdFaults(args []string) {
	if len(args) > 0 && strings.EqualFold(args[0], "clear") {
		c.svc.ClearFaults()
		fmt.Fprintln(c.rl.Stdout(), "Faults cleared")
		return
	}

	errs := c.svc.Faults()
	if len(errs) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No faults")
		return
	}
	for _, e := range errs {
		fmt.Fprintf(c.rl.Stdout(), "  %s  %s on %s: %s\n",
			e.Timestamp.Format("15:04:05"), e.Operation, e.Target, e.Message)
	}
}

// resolveTarget resolves a possibly partial device name to a known target.
func (c *Console) resolveTarget(input string) model.TargetID {
	id := model.NormalizeTargetID(input)
	if _, ok := c.svc.Target(id); ok {
		return id
	}

	// Partial match against known devices.
	for _, t := range c.svc.Targets() {
		if strings.Contains(string(t.ID), strings.ToLower(input)) {
			return t.ID
		}
	}
	return ""
}

// resolveTargets resolves a list of device names, printing the first miss.
func (c *Console) resolveTargets(inputs []string) []model.TargetID {
	targets := make([]model.TargetID, 0, len(inputs))
	for _, input := range inputs {
		target := c.resolveTarget(input)
		if target == "" {
			fmt.Fprintf(c.rl.Stdout(), "Device not found: %s\n", input)
			return nil
		}
		targets = append(targets, target)
	}
	return targets
}

// parseOnOff parses a boolean command argument.
func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

// parseFilterType parses an equalizer filter type argument.
func parseFilterType(s string) (model.FilterType, error) {
	switch strings.ToLower(s) {
	case "peaking", "peak", "pk":
		return model.FilterPeaking, nil
	case "low_shelf", "lowshelf", "lshelf":
		return model.FilterLowShelf, nil
	case "high_shelf", "highshelf", "hshelf":
		return model.FilterHighShelf, nil
	case "low_pass", "lowpass", "lpf":
		return model.FilterLowPass, nil
	case "high_pass", "highpass", "hpf":
		return model.FilterHighPass, nil
	case "notch":
		return model.FilterNotch, nil
	default:
		return "", fmt.Errorf("unknown filter type %q", s)
	}
}
