// Package consistency checks that the attached client libraries decode the
// same chain. Every library asks the node for its head, the lowest head is
// taken as the reference height, and the block hash at that height is
// compared across libraries.
package consistency

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmagro/eth-console/internal/client"
)

// Report holds the results of a cross-library consistency check.
type Report struct {
	// Block height analysis
	Heights     map[string]uint64 // library -> head height
	MaxHeight   uint64
	HeightDrift int  // max difference in blocks
	InSync      bool // all libraries within acceptable range

	// Block hash analysis (at reference height)
	ReferenceHeight uint64
	Hashes          map[string]string // library -> block hash
	HashConsensus   bool
	HashGroups      []HashGroup // largest group first

	// Errors holds libraries whose calls failed.
	Errors map[string]error

	Consistent bool
	Issues     []string
}

// HashGroup represents libraries that reported the same block hash.
type HashGroup struct {
	Hash      string
	Libraries []string
}

// acceptableDrift is how many blocks apart heads may be. The libraries query
// one node, so drift only comes from blocks arriving between calls.
const acceptableDrift = 2

// Check analyses heads and the hashes fetched at referenceHeight. Empty
// hashes are ignored.
func Check(heights map[string]uint64, hashesAtRef map[string]string, referenceHeight uint64) *Report {
	report := &Report{
		Heights:         heights,
		Hashes:          hashesAtRef,
		ReferenceHeight: referenceHeight,
		Errors:          map[string]error{},
		Consistent:      true,
	}

	first := true
	var minHeight uint64
	for _, height := range heights {
		if height > report.MaxHeight {
			report.MaxHeight = height
		}
		if first || height < minHeight {
			minHeight, first = height, false
		}
	}
	report.HeightDrift = int(report.MaxHeight - minHeight)
	report.InSync = report.HeightDrift <= acceptableDrift
	if !report.InSync {
		report.Consistent = false
		report.Issues = append(report.Issues,
			fmt.Sprintf("Head height drift of %d blocks exceeds threshold", report.HeightDrift))
	}

	byHash := make(map[string][]string)
	for library, hash := range hashesAtRef {
		if hash != "" {
			byHash[hash] = append(byHash[hash], library)
		}
	}
	for hash, libraries := range byHash {
		sort.Strings(libraries)
		report.HashGroups = append(report.HashGroups, HashGroup{Hash: hash, Libraries: libraries})
	}
	sort.Slice(report.HashGroups, func(i, j int) bool {
		a, b := report.HashGroups[i], report.HashGroups[j]
		if len(a.Libraries) != len(b.Libraries) {
			return len(a.Libraries) > len(b.Libraries)
		}
		return a.Libraries[0] < b.Libraries[0]
	})

	report.HashConsensus = len(report.HashGroups) <= 1
	if !report.HashConsensus {
		report.Consistent = false
		for _, group := range report.HashGroups[1:] {
			report.Issues = append(report.Issues,
				fmt.Sprintf("Library(s) %v decode a different block hash at height %d", group.Libraries, referenceHeight))
		}
	}
	return report
}

// Compare runs the two-phase check over facades: heads first, then hashes at
// the lowest head. A library that fails is reported in Errors and Issues and
// left out of the comparison.
func Compare(ctx context.Context, facades []*client.Facade) *Report {
	errs := map[string]error{}

	heads := ExecuteAll(ctx, facades, func(ctx context.Context, f *client.Facade) (uint64, error) {
		block, err := f.GetBlock(ctx, client.Latest(), false)
		if err != nil {
			return 0, err
		}
		if block == nil {
			return 0, fmt.Errorf("no latest block")
		}
		return block.Number, nil
	})

	heights := make(map[string]uint64, len(heads))
	var live []*client.Facade
	for _, r := range heads {
		if r.Err != nil {
			errs[r.Library] = r.Err
			continue
		}
		heights[r.Library] = r.Value
		live = append(live, facades[r.Index])
	}

	var ref uint64
	first := true
	for _, h := range heights {
		if first || h < ref {
			ref, first = h, false
		}
	}

	hashes := make(map[string]string, len(live))
	if len(live) > 0 {
		results := ExecuteAll(ctx, live, func(ctx context.Context, f *client.Facade) (string, error) {
			block, err := f.GetBlock(ctx, client.Number(ref), false)
			if err != nil {
				return "", err
			}
			if block == nil {
				return "", fmt.Errorf("no block at height %d", ref)
			}
			return block.Hash, nil
		})
		for _, r := range results {
			if r.Err != nil {
				errs[r.Library] = r.Err
				continue
			}
			hashes[r.Library] = r.Value
		}
	}

	report := Check(heights, hashes, ref)
	report.Errors = errs
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		report.Consistent = false
		report.Issues = append(report.Issues, fmt.Sprintf("%s: %v", name, errs[name]))
	}
	return report
}

// FormatHeightDrift returns a human-readable description of height drift.
func FormatHeightDrift(drift int) string {
	if drift == 0 {
		return "all libraries in sync"
	}

	// Assuming ~12 second block time
	seconds := drift * 12
	if seconds < 60 {
		return fmt.Sprintf("%d block(s) apart (~%ds)", drift, seconds)
	}
	return fmt.Sprintf("%d block(s) apart (~%dm)", drift, seconds/60)
}
