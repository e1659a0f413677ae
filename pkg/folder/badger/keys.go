package badger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marmos91/dittobrowse/pkg/folder"
)

// Key Schema:
//
//	c:<collection>               -> empty (collection marker)
//	q:<collection>               -> uint64 next sequence number
//	i:<collection>\x00<seq>      -> JSON itemRecord (seq is big-endian, so
//	                                prefix scans return insertion order)
//	n:<collection>\x00<name>     -> <seq> of the item with that name
//
// Collection names never contain "/" or NUL, so prefixes cannot collide.
const (
	prefixCollection = "c:"
	prefixSequence   = "q:"
	prefixItem       = "i:"
	prefixName       = "n:"
)

func keyCollection(name string) []byte {
	return []byte(prefixCollection + name)
}

func keySequence(collection string) []byte {
	return []byte(prefixSequence + collection)
}

func keyItemPrefix(collection string) []byte {
	return []byte(prefixItem + collection + "\x00")
}

func keyItem(collection string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(keyItemPrefix(collection), seq)
}

func keyName(collection, name string) []byte {
	return []byte(prefixName + collection + "\x00" + name)
}

func encodeSeq(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}

func decodeSeq(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("invalid sequence value of %d bytes", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// itemRecord is the persisted form of a folder.ContentInfo. Deferred sources
// cannot be persisted; only URL sources survive.
type itemRecord struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Size         int64     `json:"size"`
	UpdatedTime  time.Time `json:"updated_time"`
	Path         string    `json:"path,omitempty"`
	ContentURL   string    `json:"content_url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
}

func encodeItem(item folder.ContentInfo) ([]byte, error) {
	rec := itemRecord{
		Name:        item.Name,
		Type:        item.Type,
		Size:        item.Size,
		UpdatedTime: item.UpdatedTime,
		Path:        item.Path,
	}
	if item.Content.Kind == folder.SourceURL {
		rec.ContentURL = item.Content.URL
	}
	if item.Thumbnail.Kind == folder.SourceURL {
		rec.ThumbnailURL = item.Thumbnail.URL
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode item: %w", err)
	}
	return b, nil
}

func decodeItem(b []byte) (folder.ContentInfo, error) {
	var rec itemRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return folder.ContentInfo{}, fmt.Errorf("failed to decode item: %w", err)
	}
	return folder.ContentInfo{
		Name:        rec.Name,
		Type:        rec.Type,
		Size:        rec.Size,
		UpdatedTime: rec.UpdatedTime,
		Path:        rec.Path,
		Content:     folder.URLSource(rec.ContentURL),
		Thumbnail:   folder.URLSource(rec.ThumbnailURL),
	}, nil
}
