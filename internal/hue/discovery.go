package hue

import (
	"context"
	"fmt"
	stdlog "log"
	"strings"
	"sync"
	"time"

	"github.com/amimof/huego"
	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog/log"
)

// hueService is the mDNS service type Hue bridges announce
const hueService = "_hue._tcp"

// DiscoveredBridge is a bridge found by mDNS or the cloud discovery endpoint.
type DiscoveredBridge struct {
	Host     string // IPv4 address
	BridgeID string // upper-case, empty when the source did not report it
	ModelID  string // e.g. "BSB002", mDNS only
	Name     string // mDNS instance name
	Source   string // "mdns" or "cloud"
}

type discoverFunc func(ctx context.Context, timeout time.Duration) ([]DiscoveredBridge, error)

// mdnsLogWriter forwards the mdns package's logger to zerolog at debug level
type mdnsLogWriter struct{}

func (mdnsLogWriter) Write(p []byte) (int, error) {
	log.Debug().Str("component", "mdns").Msg(strings.TrimSpace(string(p)))
	return len(p), nil
}

// DiscoverMDNS browses the local network for Hue bridges until timeout or ctx is done.
// On cancellation it returns what was found so far along with ctx.Err().
func DiscoverMDNS(ctx context.Context, timeout time.Duration) ([]DiscoveredBridge, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	queryDone := make(chan error, 1)
	drained := make(chan struct{})

	var mu sync.Mutex
	var found bridgeSet
	go func() {
		defer close(drained)
		for entry := range entries {
			if bridge, ok := bridgeFromEntry(entry); ok {
				mu.Lock()
				found.add(bridge)
				mu.Unlock()
			}
		}
	}()

	params := mdns.DefaultParams(hueService)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	params.Logger = stdlog.New(mdnsLogWriter{}, "", 0)

	go func() {
		// QueryContext closes its sockets on cancellation but only returns at the timeout
		queryDone <- mdns.QueryContext(ctx, params)
		close(entries)
	}()

	var err error
	select {
	case err = <-queryDone:
		<-drained
	case <-ctx.Done():
		err = ctx.Err()
	}

	mu.Lock()
	bridges := append([]DiscoveredBridge(nil), found.bridges...)
	mu.Unlock()

	if err != nil {
		return bridges, fmt.Errorf("mDNS query failed: %w", err)
	}
	return bridges, nil
}

// bridgeFromEntry reads a bridge from an mDNS answer. Entries without an IPv4 address are skipped.
func bridgeFromEntry(entry *mdns.ServiceEntry) (DiscoveredBridge, bool) {
	if entry == nil || entry.AddrV4 == nil {
		return DiscoveredBridge{}, false
	}

	bridge := DiscoveredBridge{
		Host:   entry.AddrV4.String(),
		Name:   entry.Name,
		Source: "mdns",
	}
	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "bridgeid":
			bridge.BridgeID = strings.ToUpper(value)
		case "modelid":
			bridge.ModelID = value
		}
	}
	if bridge.Name == "" {
		bridge.Name = strings.TrimSuffix(entry.Host, ".")
	}

	return bridge, true
}

// DiscoverCloud asks the Philips discovery endpoint (N-UPnP) for bridges on this network.
func DiscoverCloud(ctx context.Context, timeout time.Duration) ([]DiscoveredBridge, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	found, err := huego.DiscoverAllContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("cloud discovery failed: %w", err)
	}

	result := make([]DiscoveredBridge, len(found))
	for i, b := range found {
		result[i] = DiscoveredBridge{
			Host:     b.Host,
			BridgeID: strings.ToUpper(b.ID),
			Source:   "cloud",
		}
	}

	return result, nil
}

// Discover runs mDNS and cloud discovery concurrently and merges the results.
func Discover(ctx context.Context, timeout time.Duration) ([]DiscoveredBridge, error) {
	return discoverWith(ctx, timeout, DiscoverMDNS, DiscoverCloud)
}

// discoveryGrace lets sources that stop exactly at the timeout still deliver
const discoveryGrace = 500 * time.Millisecond

func discoverWith(ctx context.Context, timeout time.Duration, sources ...discoverFunc) ([]DiscoveredBridge, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout+discoveryGrace)
	defer cancel()

	type result struct {
		bridges []DiscoveredBridge
		err     error
	}

	results := make(chan result, len(sources))
	for _, source := range sources {
		go func(discover discoverFunc) {
			bridges, err := discover(ctx, timeout)
			results <- result{bridges: bridges, err: err}
		}(source)
	}

	var found bridgeSet
	var lastErr error

	for received := 0; received < len(sources); received++ {
		var r result
		select {
		case r = <-results:
		case <-ctx.Done():
			if len(found.bridges) > 0 {
				return found.bridges, nil
			}
			return nil, ctx.Err()
		}

		if r.err != nil {
			log.Debug().Err(r.err).Msg("Discovery source failed")
			lastErr = r.err
		}
		for _, b := range r.bridges {
			found.add(b)
		}
	}

	if len(found.bridges) == 0 && lastErr != nil {
		return nil, lastErr
	}

	return found.bridges, nil
}

// bridgeSet keeps discovered bridges in arrival order.
// Two entries are the same bridge when they share a bridge id or a host.
type bridgeSet struct {
	bridges []DiscoveredBridge
	byID    map[string]int
	byHost  map[string]int
}

func (s *bridgeSet) add(b DiscoveredBridge) {
	if s.byID == nil {
		s.byID = make(map[string]int)
		s.byHost = make(map[string]int)
	}
	b.BridgeID = strings.ToUpper(b.BridgeID)

	i, ok := s.byID[b.BridgeID]
	if !ok {
		i, ok = s.byHost[b.Host]
	}
	if !ok {
		i = len(s.bridges)
		s.bridges = append(s.bridges, b)
	} else {
		s.bridges[i].merge(b)
	}

	if id := s.bridges[i].BridgeID; id != "" {
		s.byID[id] = i
	}
	s.byHost[b.Host] = i
}

// merge fills fields the first sighting did not report
func (b *DiscoveredBridge) merge(other DiscoveredBridge) {
	if b.BridgeID == "" {
		b.BridgeID = other.BridgeID
	}
	if b.ModelID == "" {
		b.ModelID = other.ModelID
	}
	if b.Name == "" {
		b.Name = other.Name
	}
}
