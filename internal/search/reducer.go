package search

import (
	"context"
	"sort"

	"github.com/keagan/viddup/internal/ann"
	"github.com/keagan/viddup/internal/store"
	"github.com/rs/zerolog"
)

// Entry is one file's appearance in a cluster, with the offset in seconds
// of the first matching window.
type Entry struct {
	File   store.FileRecord
	Offset float64
}

// Cluster is a suspected duplicate group of at least two files.
type Cluster struct {
	Entries []Entry
}

// Whitelist answers whether a canonical pair of file ids has been marked
// legitimately similar.
type Whitelist interface {
	WhitelistContains(ctx context.Context, p store.Pair) (bool, error)
}

// Reduce walks the ANN index in row order and folds neighborhoods into
// de-duplicated clusters. A group is suppressed only when every pair of
// files in it is whitelisted; pairs already reported by an earlier row are
// not reported again.
func Reduce(ctx context.Context, windows []Window, files map[int64]store.FileRecord, idx ann.Index, step int, radius float64, wl Whitelist, logger zerolog.Logger) ([]Cluster, error) {
	if step < 1 {
		step = 1
	}

	known := make(map[store.Pair]bool)
	var clusters []Cluster

	for i := 0; i < idx.Len(); i += step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		neighbors, err := idx.QueryRadius(i, radius)
		if err != nil {
			return nil, err
		}
		if len(neighbors) <= 1 {
			continue
		}
		sort.Ints(neighbors)
		if len(neighbors) > ann.MaxNeighbors {
			neighbors = neighbors[:ann.MaxNeighbors]
		}

		fileIDs := distinctFileIDs(windows, neighbors)
		if len(fileIDs) < 2 {
			continue
		}

		pairs, err := freshPairs(ctx, fileIDs, known, wl)
		if err != nil {
			return nil, err
		}
		if len(pairs) == 0 {
			continue
		}
		for _, p := range pairs {
			known[p] = true
		}

		inGroup := make(map[int64]bool)
		for _, p := range pairs {
			inGroup[p.A] = true
			inGroup[p.B] = true
		}

		cluster := materialize(windows, files, neighbors, inGroup)
		if len(cluster.Entries) >= 2 {
			clusters = append(clusters, cluster)
		}
	}

	logger.Info().Int("clusters", len(clusters)).Msg("reduction complete")
	return clusters, nil
}

// distinctFileIDs collects the sorted set of file ids the neighbors touch.
func distinctFileIDs(windows []Window, neighbors []int) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, row := range neighbors {
		id := windows[row].FileID
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// freshPairs forms all unordered pairs of fileIDs and filters them. When
// every pair of the group is whitelisted the whole group is suppressed;
// otherwise only pairs reported by earlier rows are dropped.
func freshPairs(ctx context.Context, fileIDs []int64, known map[store.Pair]bool, wl Whitelist) ([]store.Pair, error) {
	var all []store.Pair
	for i := 0; i < len(fileIDs); i++ {
		for j := i + 1; j < len(fileIDs); j++ {
			p, err := store.NewPair(fileIDs[i], fileIDs[j])
			if err != nil {
				return nil, err
			}
			all = append(all, p)
		}
	}

	allWhitelisted := true
	for _, p := range all {
		ok, err := wl.WhitelistContains(ctx, p)
		if err != nil {
			return nil, err
		}
		if !ok {
			allWhitelisted = false
			break
		}
	}
	if allWhitelisted {
		return nil, nil
	}

	var fresh []store.Pair
	for _, p := range all {
		if !known[p] {
			fresh = append(fresh, p)
		}
	}
	return fresh, nil
}

// materialize walks the neighbor list in row order and records the first
// window seen per file still in the group.
func materialize(windows []Window, files map[int64]store.FileRecord, neighbors []int, inGroup map[int64]bool) Cluster {
	var cluster Cluster
	used := make(map[int64]bool)
	for _, row := range neighbors {
		w := windows[row]
		if !inGroup[w.FileID] || used[w.FileID] {
			continue
		}
		used[w.FileID] = true
		f := files[w.FileID]
		cluster.Entries = append(cluster.Entries, Entry{
			File:   f,
			Offset: float64(w.FirstFrame) / f.FPS,
		})
	}
	return cluster
}
