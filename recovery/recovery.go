// Package recovery ties the volume bootstrap, MFT loader, record parser, path resolver, and extraction façade
// together into a single entry point: open a raw NTFS volume and get back a read-only index of its files.
package recovery

import (
	"fmt"
	"io"

	"github.com/go-forensics/ntfsrecover/blockio"
	"github.com/go-forensics/ntfsrecover/bootsect"
	"github.com/go-forensics/ntfsrecover/extract"
	"github.com/go-forensics/ntfsrecover/mft"
	"github.com/go-forensics/ntfsrecover/mftload"
	"github.com/go-forensics/ntfsrecover/pathresolve"
	"github.com/go-forensics/ntfsrecover/rlog"
)

// Kind classifies a recovery.Error into one of the five failure categories the decoder distinguishes.
type Kind int

const (
	KindGeometry Kind = iota
	KindIO
	KindFormat
	KindMissing
	KindCollision
)

func (k Kind) String() string {
	switch k {
	case KindGeometry:
		return "geometry"
	case KindIO:
		return "io"
	case KindFormat:
		return "format"
	case KindMissing:
		return "missing"
	case KindCollision:
		return "collision"
	default:
		return "unknown"
	}
}

// Error is a recovery failure tagged with a Kind, so callers can branch on fatal-vs-warn categories without
// string matching.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("recovery: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("recovery: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// bootSectorSize is the number of bytes read to parse the volume's boot sector.
const bootSectorSize = 512

// Options configures Open. All fields are optional; the zero value reads the volume as-is.
type Options struct {
	// SectorSize and ClusterSize override the boot sector's own geometry fields when non-zero, for volumes whose
	// boot sector is damaged or known to disagree with the physical media.
	SectorSize  int
	ClusterSize int

	// Alignment is the block-alignment workaround passed to blockio.NewAligned. Zero uses blockio.DefaultAlignment.
	Alignment int64

	// MFTImage, when set, bypasses the MFT loader entirely and is used as the raw MFT byte image directly.
	MFTImage []byte

	// Logger receives every warn-and-continue diagnostic. A nil Logger discards them.
	Logger *rlog.Logger
}

// Volume is an opened NTFS volume: its geometry, its parsed MFT index, and the reader needed to materialize
// non-resident attribute content.
type Volume struct {
	reader *blockio.Reader
	geom   bootsect.Geometry
	logger *rlog.Logger

	Index []*mft.Record
	// MFTImage is the raw byte image of the reconstructed $MFT, exactly as produced by the MFT loader (or as
	// supplied through Options.MFTImage). cmd/ntfsrecover's dump-mft command writes this out directly.
	MFTImage []byte
}

// Open parses src as a raw NTFS volume: its boot sector, its MFT (bootstrapped and, if fragmented, fully
// re-read through its own runlist), and every MFT record's attributes, merging in any records split out into
// $ATTRIBUTE_LIST extension records. Geometry and IO failures along this path are fatal and returned as a
// *Error; per-record and per-attribute failures are instead warned through Options.Logger and leave the
// affected record null or partial.
func Open(src io.ReaderAt, opts Options) (*Volume, error) {
	w := opts.Logger.AsWarnFunc()

	alignment := opts.Alignment
	if alignment == 0 {
		alignment = blockio.DefaultAlignment
	}
	r := blockio.NewAligned(src, alignment)

	bootBytes, err := r.ReadAt(0, bootSectorSize)
	if err != nil {
		return nil, &Error{Kind: KindIO, Message: "reading boot sector", Err: err}
	}
	bs, err := bootsect.Parse(bootBytes)
	if err != nil {
		return nil, &Error{Kind: KindFormat, Message: "parsing boot sector", Err: err}
	}
	if bs.OemId != bootsect.SupportedOemId {
		return nil, &Error{Kind: KindGeometry, Message: fmt.Sprintf("unsupported OEM id %q, expected %q", bs.OemId, bootsect.SupportedOemId)}
	}

	geom := bs.Override(opts.SectorSize, opts.ClusterSize)
	if geom.BytesPerCluster <= 0 {
		return nil, &Error{Kind: KindGeometry, Message: fmt.Sprintf("invalid bytes per cluster %d", geom.BytesPerCluster)}
	}

	image := opts.MFTImage
	if image == nil {
		image, err = mftload.Load(r, geom, w)
		if err != nil {
			return nil, &Error{Kind: KindIO, Message: "loading MFT", Err: err}
		}
	}

	index := mft.BuildIndex(image, w)
	src2 := mft.Source{Reader: r, BytesPerCluster: int64(geom.BytesPerCluster)}
	mergeAttributeListExtensions(index, src2, w)

	return &Volume{reader: r, geom: geom, logger: opts.Logger, Index: index, MFTImage: image}, nil
}

// mergeAttributeListExtensions resolves every record's $ATTRIBUTE_LIST (if any) and merges the attributes of the
// extension records it names into the base record's attribute map, so that a heavily-fragmented file's
// attributes appear as one map regardless of how many MFT records they are split across.
func mergeAttributeListExtensions(index []*mft.Record, src mft.Source, w mft.WarnFunc) {
	for _, rec := range index {
		if rec == nil {
			continue
		}
		attrListAttr, ok := rec.Find("attr_list", "")
		if !ok {
			continue
		}

		raw, err := attrListAttr.Producer.Produce(src)
		if err != nil {
			w("recovery: record %d: reading attribute list: %v", rec.RecordNumber, err)
			continue
		}

		for _, entry := range mft.ParseAttributeList(raw, w) {
			baseNumber := int(entry.BaseRecord.RecordNumberMasked())
			if baseNumber == rec.RecordNumber {
				continue
			}
			if baseNumber < 0 || baseNumber >= len(index) {
				w("recovery: record %d: attribute list references out-of-range extension record %d", rec.RecordNumber, baseNumber)
				continue
			}
			ext := index[baseNumber]
			if ext == nil {
				w("recovery: record %d: attribute list references missing extension record %d", rec.RecordNumber, baseNumber)
				continue
			}
			mergeAttributes(rec, ext)
		}
	}
}

func mergeAttributes(dst, src *mft.Record) {
	for shortName, byStream := range src.Attributes {
		dstByStream, ok := dst.Attributes[shortName]
		if !ok {
			dstByStream = make(map[string]mft.Attribute)
			dst.Attributes[shortName] = dstByStream
		}
		for streamName, attr := range byStream {
			dstByStream[streamName] = attr
		}
	}
}

// Resolve reconstructs the full path of the record at index i, walking FILE_NAME parent references.
func (v *Volume) Resolve(i int) (path []string, orphaned bool) {
	return pathresolve.Resolve(v.Index, i)
}

// Materialize extracts the primary data stream and alternates of the record at index i.
func (v *Volume) Materialize(i int) (primary []byte, alternates map[string][]byte, err error) {
	if i < 0 || i >= len(v.Index) || v.Index[i] == nil {
		return nil, nil, &Error{Kind: KindMissing, Message: fmt.Sprintf("record %d is missing", i)}
	}
	src := mft.Source{Reader: v.reader, BytesPerCluster: int64(v.geom.BytesPerCluster)}
	return extract.Materialize(v.Index[i], src)
}

// Logger returns the Logger this Volume was opened with, or nil if none was given.
func (v *Volume) Logger() *rlog.Logger {
	return v.logger
}

// Source returns the mft.Source needed to produce a non-resident attribute's bytes directly, for callers (such
// as cmd/ntfsrecover's directory listing) that need to invoke a Producer the Volume itself doesn't wrap.
func (v *Volume) Source() mft.Source {
	return mft.Source{Reader: v.reader, BytesPerCluster: int64(v.geom.BytesPerCluster)}
}

// Geometry returns the volume's cluster geometry, after any Options overrides were applied.
func (v *Volume) Geometry() bootsect.Geometry {
	return v.geom
}
