// Package place upgrades coordinate labels to human-readable place names.
package place

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/framemark/pkg/meta"
)

// Lookup resolves coordinates to a short place label.
type Lookup interface {
	Lookup(ctx context.Context, lat, lon float64) (string, error)
}

// Timeout bounds a single lookup made by Upgrade.
var Timeout = 5 * time.Second

// Upgrade returns c with its GPS label replaced by a looked-up place name.
// Lookup errors are logged and c is returned unchanged.
func Upgrade(ctx context.Context, l Lookup, c meta.Capture) meta.Capture {
	return UpgradeWithin(ctx, l, c, Timeout)
}

// UpgradeWithin is Upgrade with the lookup limited to d. It returns when d
// elapses or ctx ends even if the lookup ignores its context.
func UpgradeWithin(ctx context.Context, l Lookup, c meta.Capture, d time.Duration) meta.Capture {
	if l == nil || !c.HasCoords {
		return c
	}
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	type reply struct {
		label string
		err   error
	}
	ch := make(chan reply, 1)
	go func() {
		label, err := l.Lookup(ctx, c.Lat, c.Lon)
		ch <- reply{label, err}
	}()

	var r reply
	select {
	case r = <-ch:
	case <-ctx.Done():
		r.err = ctx.Err()
	}
	if r.err != nil {
		klog.Warningf("place lookup for %.4f,%.4f failed, keeping %q: %v", c.Lat, c.Lon, c.GPSLabel, r.err)
		return c
	}
	label := clean(r.label)
	if label == "" {
		return c
	}
	klog.V(1).Infof("place %.4f,%.4f -> %q", c.Lat, c.Lon, label)
	return c.WithGPSLabel(label)
}

// UpgradeAsync runs Upgrade in the background. The channel always receives
// exactly one Capture: the upgraded one, or c if ctx ends first.
func UpgradeAsync(ctx context.Context, l Lookup, c meta.Capture) <-chan meta.Capture {
	ch := make(chan meta.Capture, 1)
	go func() { ch <- Upgrade(ctx, l, c) }()
	return ch
}

// MaxLabel is the longest label kept from a lookup.
var MaxLabel = 48

// clean trims quoting and punctuation that generative models like to add.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, "\"'`*. ")
	if r := []rune(s); len(r) > MaxLabel {
		s = strings.TrimSpace(string(r[:MaxLabel]))
	}
	return s
}

// Cache remembers labels for coordinates rounded to roughly a kilometer.
type Cache struct {
	next Lookup

	mu     sync.Mutex
	labels map[string]string
}

// NewCache wraps l.
func NewCache(l Lookup) *Cache {
	return &Cache{next: l, labels: map[string]string{}}
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.2f,%.2f", math.Round(lat*100)/100, math.Round(lon*100)/100)
}

// Lookup implements Lookup. Failures are not cached.
func (c *Cache) Lookup(ctx context.Context, lat, lon float64) (string, error) {
	k := cacheKey(lat, lon)
	c.mu.Lock()
	label, ok := c.labels[k]
	c.mu.Unlock()
	if ok {
		return label, nil
	}

	label, err := c.next.Lookup(ctx, lat, lon)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.labels[k] = label
	c.mu.Unlock()
	return label, nil
}
