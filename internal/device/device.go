// Package device resolves the --device flag. The emitted graphs are
// device-independent; the device only selects where tensor preparation runs,
// so an unavailable accelerator degrades to CPU with a warning instead of
// failing the export.
package device

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pilebones/go-udev/crawler"
	"github.com/pilebones/go-udev/netlink"

	"meloconv/internal/logging"
)

// Kind is the compute target an export runs on.
type Kind string

const (
	CPU  Kind = "cpu"
	CUDA Kind = "cuda"
)

// Device is a resolved compute target.
type Device struct {
	Kind Kind
	// Node is the device node backing an accelerator, e.g. /dev/nvidia0.
	// Empty for CPU.
	Node string
}

func (d Device) String() string {
	if d.Node == "" {
		return string(d.Kind)
	}
	return fmt.Sprintf("%s (%s)", d.Kind, d.Node)
}

// probeTimeout bounds the udev crawl; scanning /sys is fast but unbounded
// channels from the crawler need a cutoff.
const probeTimeout = 500 * time.Millisecond

// Resolve maps a requested device name (cpu, cuda, auto) to a Device.
// Unknown names are an error; a known but absent accelerator falls back to
// CPU with a warning.
func Resolve(name string, logger *slog.Logger) (Device, error) {
	log := logging.NewComponentLogger(logger, "device")

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cpu":
		return Device{Kind: CPU}, nil
	case "cuda":
		if node, ok := probeAccelerator(); ok {
			return Device{Kind: CUDA, Node: node}, nil
		}
		log.Warn("cuda requested but no accelerator device node found; falling back to cpu")
		return Device{Kind: CPU}, nil
	case "auto":
		if node, ok := probeAccelerator(); ok {
			log.Info("accelerator detected", logging.String("node", node))
			return Device{Kind: CUDA, Node: node}, nil
		}
		return Device{Kind: CPU}, nil
	default:
		return Device{}, fmt.Errorf("unsupported device %q (expected cpu, cuda, or auto)", name)
	}
}

// probeAccelerator crawls existing udev devices for an NVIDIA control node.
func probeAccelerator() (string, bool) {
	queue := make(chan crawler.Device)
	errs := make(chan error)
	quit := crawler.ExistingDevices(queue, errs, acceleratorMatcher())
	defer close(quit)

	deadline := time.After(probeTimeout)
	for {
		select {
		case dev := <-queue:
			if node, ok := dev.Env["DEVNAME"]; ok && node != "" {
				return "/dev/" + strings.TrimPrefix(node, "/dev/"), true
			}
		case <-errs:
			// Permission problems on individual sysfs entries are routine;
			// keep draining until the deadline.
		case <-deadline:
			return "", false
		}
	}
}

func acceleratorMatcher() netlink.Matcher {
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Env: map[string]string{"DEVNAME": "nvidia\\d+"},
	})
	rules.AddRule(netlink.RuleDefinition{
		Env: map[string]string{"DEVNAME": "nvidiactl"},
	})
	return rules
}
