package frames

import (
	"fmt"
	"image/jpeg"
	"os"

	"github.com/corona10/goimagehash"
)

// UniqueFrame is a SampledFrame that survived deduplication. The fingerprint
// is kept for audit and debugging; it is not persisted.
type UniqueFrame struct {
	SampledFrame
	Fingerprint *goimagehash.ImageHash
}

// Deduplicator collapses visually near-identical frames using 64-bit
// perceptual hashes. A frame is kept iff its minimum Hamming distance to
// every previously kept fingerprint exceeds the distance bound; ties at
// exactly the bound are duplicates. A bound of 0 disables deduplication.
type Deduplicator struct {
	distance int
	hash     func(SampledFrame) (*goimagehash.ImageHash, error)
}

// NewDeduplicator creates a Deduplicator with the given Hamming bound
func NewDeduplicator(distance int) *Deduplicator {
	return &Deduplicator{
		distance: distance,
		hash:     hashFrameFile,
	}
}

// Deduplicate filters the sampled frames down to visually distinct ones,
// preserving first-occurrence order. Runs synchronously; order of the input
// is the order of comparison.
func (d *Deduplicator) Deduplicate(frames []SampledFrame) ([]UniqueFrame, error) {
	unique := make([]UniqueFrame, 0, len(frames))
	accepted := make([]*goimagehash.ImageHash, 0, len(frames))

	for _, frame := range frames {
		fp, err := d.hash(frame)
		if err != nil {
			return nil, fmt.Errorf("failed to fingerprint frame %d: %w", frame.Index, err)
		}

		if d.distance > 0 {
			distinct, err := exceedsMinDistance(fp, accepted, d.distance)
			if err != nil {
				return nil, fmt.Errorf("failed to compare frame %d: %w", frame.Index, err)
			}
			if !distinct {
				continue
			}
		}

		accepted = append(accepted, fp)
		unique = append(unique, UniqueFrame{SampledFrame: frame, Fingerprint: fp})
	}

	return unique, nil
}

// exceedsMinDistance reports whether fp's minimum Hamming distance to every
// accepted fingerprint is strictly greater than bound. O(k) per frame with k
// fingerprints accepted so far, which is fine at scene-change granularity.
func exceedsMinDistance(fp *goimagehash.ImageHash, accepted []*goimagehash.ImageHash, bound int) (bool, error) {
	for _, other := range accepted {
		dist, err := fp.Distance(other)
		if err != nil {
			return false, err
		}
		if dist <= bound {
			return false, nil
		}
	}
	return true, nil
}

// hashFrameFile decodes the frame image from disk and computes its pHash
func hashFrameFile(frame SampledFrame) (*goimagehash.ImageHash, error) {
	file, err := os.Open(frame.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := jpeg.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", frame.Path, err)
	}

	return goimagehash.PerceptionHash(img)
}
