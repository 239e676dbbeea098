package discovery

import (
	"net"
	"testing"

	"github.com/enbility/zeroconf/v3"
)

func TestDecodeTXT(t *testing.T) {
	t.Run("AllKeys", func(t *testing.T) {
		txt := decodeTXT([]string{"nm=Kitchen Amp", "md=RT-200", "vs=2.4.1"})
		if txt.Name != "Kitchen Amp" {
			t.Errorf("Name = %q, want Kitchen Amp", txt.Name)
		}
		if txt.Model != "RT-200" {
			t.Errorf("Model = %q, want RT-200", txt.Model)
		}
		if txt.Version != "2.4.1" {
			t.Errorf("Version = %q, want 2.4.1", txt.Version)
		}
	})

	t.Run("MalformedAndUnknownEntriesSkipped", func(t *testing.T) {
		txt := decodeTXT([]string{"garbage", "xx=ignored", "nm=Amp", ""})
		if txt.Name != "Amp" {
			t.Errorf("Name = %q, want Amp", txt.Name)
		}
		if txt.Model != "" || txt.Version != "" {
			t.Errorf("unexpected fields: %+v", txt)
		}
	})

	t.Run("ValueContainingEquals", func(t *testing.T) {
		txt := decodeTXT([]string{"nm=A=B"})
		if txt.Name != "A=B" {
			t.Errorf("Name = %q, want A=B", txt.Name)
		}
	})
}

func TestApplianceTarget(t *testing.T) {
	svc := &ApplianceService{
		InstanceName: "roomtone-kitchen",
		Host:         "Kitchen.local.",
		Port:         8090,
		Name:         "Kitchen Amp",
	}

	target := svc.Target()
	if target.ID != "kitchen.local" {
		t.Errorf("ID = %q, want normalized kitchen.local", target.ID)
	}
	if target.Name != "Kitchen Amp" {
		t.Errorf("Name = %q", target.Name)
	}
	if !target.Reachable {
		t.Error("discovered appliance should be reachable")
	}

	// Without a TXT name the instance name is the fallback.
	svc.Name = ""
	if got := svc.Target().Name; got != "roomtone-kitchen" {
		t.Errorf("fallback Name = %q, want instance name", got)
	}
}

func TestEntryToAppliance(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		AddrIPv4: []net.IP{net.ParseIP("192.168.1.40")},
		AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
	}
	entry.Instance = "roomtone-study"
	entry.HostName = "study.local."
	entry.Port = 8090
	entry.Text = []string{"nm=Study", "md=RT-100"}

	svc := entryToAppliance(entry)
	if svc == nil {
		t.Fatal("entryToAppliance() = nil")
	}
	if svc.Host != "study.local." || svc.Port != 8090 {
		t.Errorf("service = %+v", svc)
	}
	if len(svc.Addresses) != 2 {
		t.Errorf("Addresses = %v, want both families", svc.Addresses)
	}
	if svc.Model != "RT-100" {
		t.Errorf("Model = %q", svc.Model)
	}
}

func TestMergeAddresses(t *testing.T) {
	got := mergeAddresses([]string{"192.168.1.40"}, []string{"192.168.1.40", "fe80::1"})
	if len(got) != 2 {
		t.Errorf("merged = %v, want 2 unique addresses", got)
	}
}

func TestRemoveAddresses(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		AddrIPv4: []net.IP{net.ParseIP("192.168.1.40")},
	}
	got := removeAddresses([]string{"192.168.1.40", "fe80::1"}, entry)
	if len(got) != 1 || got[0] != "fe80::1" {
		t.Errorf("remaining = %v, want only fe80::1", got)
	}
}
