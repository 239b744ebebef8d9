// Package cache implements a byte-budgeted, freshness-ordered cache of
// decoded frames, used by the reader for its working, missing, and
// final frame stores.
package cache

import (
	"sync"

	"github.com/e1z0/mediareader/internal/frame"
)

// evictionFloor is the minimum number of cached frames kept regardless
// of the byte budget, so eviction never thrashes the working set near
// the current playback position.
const evictionFloor = 20

// FrameCache maps frame numbers to frames, with an MRU freshness order
// (frontmost = most recently touched) and an ascending insertion order
// used for range scans. A zero max-bytes budget means unbounded.
type FrameCache struct {
	mu       sync.Mutex
	maxBytes int64

	frames              map[int]*frame.Frame
	frameNumbers        []int // MRU order, index 0 = most recently added/moved
	orderedFrameNumbers []int // insertion order, ascending by arrival
}

// New returns an unbounded FrameCache.
func New() *FrameCache {
	return &FrameCache{frames: make(map[int]*frame.Frame)}
}

// NewWithMaxBytes returns a FrameCache that evicts the oldest entries
// once its content exceeds maxBytes (and more than evictionFloor frames
// are held).
func NewWithMaxBytes(maxBytes int64) *FrameCache {
	c := New()
	c.maxBytes = maxBytes
	return c
}

// SetMaxBytesFromInfo sets the byte budget to numberOfFrames worth of
// frames at the given image and audio dimensions.
func (c *FrameCache) SetMaxBytesFromInfo(numberOfFrames int, width, height, sampleRate, channels int) {
	bytes := int64(numberOfFrames) * (int64(height)*int64(width)*4 + int64(sampleRate)*int64(channels)*4)
	c.SetMaxBytes(bytes)
}

// GetMaxBytes returns the configured byte budget (0 = unbounded).
func (c *FrameCache) GetMaxBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxBytes
}

// SetMaxBytes sets the byte budget (0 = unbounded).
func (c *FrameCache) SetMaxBytes(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxBytes = n
}

// Add inserts f into the cache, or freshens it to the front of the MRU
// order if its frame number is already present. Insertion may trigger
// eviction of the least-recently-touched frames to respect the byte
// budget.
func (c *FrameCache) Add(f *frame.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.frames[f.Number]; ok {
		c.moveToFrontLocked(f.Number)
		return
	}

	c.frames[f.Number] = f
	c.frameNumbers = append([]int{f.Number}, c.frameNumbers...)
	c.orderedFrameNumbers = append(c.orderedFrameNumbers, f.Number)

	c.cleanUpLocked()
}

// GetFrame returns the cached frame for frameNumber, or (nil, false) on
// a miss. It does not freshen the entry, so background sweeps don't
// perturb the LRU order.
func (c *FrameCache) GetFrame(frameNumber int) (*frame.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.frames[frameNumber]
	return f, ok
}

// GetSmallestFrame returns the frame with the lowest frame number
// currently cached, or (nil, false) if the cache is empty.
func (c *FrameCache) GetSmallestFrame() (*frame.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	smallest := -1
	for _, n := range c.frameNumbers {
		if smallest == -1 || n < smallest {
			smallest = n
		}
	}

	if smallest == -1 {
		return nil, false
	}
	f, ok := c.frames[smallest]
	return f, ok
}

// GetBytes returns the sum of GetBytes() across every cached frame.
func (c *FrameCache) GetBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getBytesLocked()
}

func (c *FrameCache) getBytesLocked() int64 {
	var total int64
	for _, n := range c.frameNumbers {
		total += c.frames[n].GetBytes()
	}
	return total
}

// Remove evicts a single frame number.
func (c *FrameCache) Remove(frameNumber int) {
	c.RemoveRange(frameNumber, frameNumber)
}

// RemoveRange evicts every frame number in [startFrameNumber,
// endFrameNumber], removing it from the frame map, the MRU list, and
// the insertion-order list together so the three structures never
// diverge (see DESIGN.md's Open Question decision on this method).
func (c *FrameCache) RemoveRange(startFrameNumber, endFrameNumber int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeRangeLocked(startFrameNumber, endFrameNumber)
}

func (c *FrameCache) removeRangeLocked(start, end int) {
	keep := c.frameNumbers[:0:0]
	for _, n := range c.frameNumbers {
		if n < start || n > end {
			keep = append(keep, n)
		}
	}
	c.frameNumbers = keep

	keepOrdered := c.orderedFrameNumbers[:0:0]
	for _, n := range c.orderedFrameNumbers {
		if n < start || n > end {
			keepOrdered = append(keepOrdered, n)
		} else {
			delete(c.frames, n)
		}
	}
	c.orderedFrameNumbers = keepOrdered
}

// MoveToFront freshens frameNumber to the front of the MRU order, if
// present.
func (c *FrameCache) MoveToFront(frameNumber int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moveToFrontLocked(frameNumber)
}

func (c *FrameCache) moveToFrontLocked(frameNumber int) {
	if _, ok := c.frames[frameNumber]; !ok {
		return
	}
	for i, n := range c.frameNumbers {
		if n == frameNumber {
			c.frameNumbers = append(c.frameNumbers[:i], c.frameNumbers[i+1:]...)
			break
		}
	}
	c.frameNumbers = append([]int{frameNumber}, c.frameNumbers...)
}

// Clear empties the cache.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = make(map[int]*frame.Frame)
	c.frameNumbers = nil
	c.orderedFrameNumbers = nil
}

// Count returns the number of frames currently cached.
func (c *FrameCache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// cleanUpLocked evicts the least-recently-touched frames while the
// cache exceeds its byte budget, always leaving at least evictionFloor
// frames behind.
func (c *FrameCache) cleanUpLocked() {
	if c.maxBytes <= 0 {
		return
	}
	for c.getBytesLocked() > c.maxBytes && len(c.frameNumbers) > evictionFloor {
		oldest := c.frameNumbers[len(c.frameNumbers)-1]
		c.removeRangeLocked(oldest, oldest)
	}
}
