// Package discovery finds audio appliances on the local network via mDNS.
//
// Appliances advertise "_roomtone._tcp" with TXT records carrying their
// friendly name, model and firmware version. The browser aggregates
// announcements from multiple interfaces by instance name and reports
// additions and removals on separate channels, so callers can track device
// reachability without polling.
package discovery
