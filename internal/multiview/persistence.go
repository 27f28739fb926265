package multiview

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Keys under which the layout is stored.
const (
	KeyLeftIDs   = "yt_multi_stream_left_ids"
	KeyRightIDs  = "yt_multi_stream_right_ids"
	KeyMuted     = "yt_multi_stream_muted"
	KeyVolume    = "yt_multi_stream_volume"
	KeyLegacyIDs = "yt_multi_stream_ids"
)

// SaveLayout writes l to s, in one batch when s is a BatchStore. The legacy
// single-list key is never written.
func SaveLayout(s Store, l Layout) error {
	left, err := encodeIDs(l.Left)
	if err != nil {
		return err
	}
	right, err := encodeIDs(l.Right)
	if err != nil {
		return err
	}
	writes := []Entry{
		{KeyLeftIDs, left},
		{KeyRightIDs, right},
		{KeyMuted, strconv.FormatBool(l.MutedAll)},
		{KeyVolume, strconv.Itoa(l.Volume)},
	}
	if bs, ok := s.(BatchStore); ok {
		if err := bs.SetBatch(writes); err != nil {
			return fmt.Errorf("save layout: %w", err)
		}
		return nil
	}
	for _, w := range writes {
		if err := s.Set(w.Key, w.Value); err != nil {
			return fmt.Errorf("set %s: %w", w.Key, err)
		}
	}
	return nil
}

// LoadLayout reads the layout from s. When neither column key is present it
// falls back to the legacy single list, dealing its entries alternately into
// left and right. Each column is capped at ColumnCapacity and malformed JSON
// reads as an empty list. Only store failures are returned as errors.
func LoadLayout(s Store) (Layout, error) {
	l := Layout{Volume: DefaultVolume}

	leftRaw, err := get(s, KeyLeftIDs)
	if err != nil {
		return l, err
	}
	rightRaw, err := get(s, KeyRightIDs)
	if err != nil {
		return l, err
	}
	mutedRaw, err := get(s, KeyMuted)
	if err != nil {
		return l, err
	}
	volumeRaw, err := get(s, KeyVolume)
	if err != nil {
		return l, err
	}

	l.MutedAll = mutedRaw == "true"
	if v, err := strconv.Atoi(volumeRaw); err == nil {
		l.Volume = clamp(v, 0, 100)
	}

	if leftRaw != "" || rightRaw != "" {
		l.Left = decodeIDs(leftRaw)
		l.Right = decodeIDs(rightRaw)
	} else {
		legacyRaw, err := get(s, KeyLegacyIDs)
		if err != nil {
			return l, err
		}
		for i, id := range decodeIDs(legacyRaw) {
			if i%2 == 0 {
				l.Left = append(l.Left, id)
			} else {
				l.Right = append(l.Right, id)
			}
		}
	}

	l.Left = capIDs(l.Left)
	l.Right = capIDs(l.Right)
	return l, nil
}

func get(s Store, key string) (string, error) {
	v, _, err := s.Get(key)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

func encodeIDs(ids []StreamID) (string, error) {
	if ids == nil {
		ids = []StreamID{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode ids: %w", err)
	}
	return string(b), nil
}

func decodeIDs(raw string) []StreamID {
	if raw == "" {
		return nil
	}
	var ids []StreamID
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}

func capIDs(ids []StreamID) []StreamID {
	if len(ids) > ColumnCapacity {
		return ids[:ColumnCapacity]
	}
	return ids
}
