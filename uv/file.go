package uv

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

const (
	FileExtension = ".uvb"

	// MaxChannels bounds the channel count accepted in a file header.
	MaxChannels = 1 << 20

	fileMagic   = "PLUV"
	fileVersion = uint16(1)
)

func checkNChan(nchan int) error {
	if nchan <= 0 || nchan > MaxChannels {
		return fmt.Errorf("channel count %d not in [1, %d]", nchan, MaxChannels)
	}
	return nil
}

// FileOpener opens .uvb files from disk.
var FileOpener = OpenerFunc(OpenFile)

// FileReader reads the .uvb visibility format.
type FileReader struct {
	r    *bufio.Reader
	c    io.Closer
	meta Metadata

	buf   []float32
	flags []byte
}

// OpenFile opens name and parses its header.
func OpenFile(name string) (Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	r, err := NewFileReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("unable to open %q: %w", name, err)
	}
	return r, nil
}

// NewFileReader parses the header from r. Closing the returned reader closes
// r if it implements io.Closer.
func NewFileReader(r io.Reader) (*FileReader, error) {
	fr := &FileReader{
		r: bufio.NewReader(r),
	}
	if c, ok := r.(io.Closer); ok {
		fr.c = c
	}

	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(fr.r, magic); err != nil {
		return nil, fmt.Errorf("error reading magic: %w", err)
	}
	if string(magic) != fileMagic {
		return nil, fmt.Errorf("not a visibility file (magic %q)", magic)
	}

	var version uint16
	if err := binary.Read(fr.r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("error reading version: %w", err)
	}
	if version != fileVersion {
		return nil, fmt.Errorf("unsupported file version %d", version)
	}

	var nchan uint32
	if err := binary.Read(fr.r, binary.LittleEndian, &nchan); err != nil {
		return nil, fmt.Errorf("error reading channel count: %w", err)
	}
	if err := checkNChan(int(nchan)); err != nil {
		return nil, fmt.Errorf("error reading channel count: %w", err)
	}
	fr.meta.NChan = int(nchan)
	for _, v := range []*float64{&fr.meta.SFreq, &fr.meta.SDF, &fr.meta.IntTime} {
		if err := binary.Read(fr.r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("error reading frequency axis: %w", err)
		}
	}

	var srcLen uint8
	if err := binary.Read(fr.r, binary.LittleEndian, &srcLen); err != nil {
		return nil, fmt.Errorf("error reading source length: %w", err)
	}
	src := make([]byte, srcLen)
	if _, err := io.ReadFull(fr.r, src); err != nil {
		return nil, fmt.Errorf("error reading source: %w", err)
	}
	fr.meta.Source = string(src)

	fr.buf = make([]float32, 2*fr.meta.NChan)
	fr.flags = make([]byte, fr.meta.NChan)
	return fr, nil
}

func (r *FileReader) Metadata() Metadata {
	return r.meta
}

func (r *FileReader) Next() (*Record, error) {
	var ants [2]int32
	if err := binary.Read(r.r, binary.LittleEndian, &ants); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("error reading baseline: %w", err)
	}

	rec := &Record{
		Baseline: Baseline{I: int(ants[0]), J: int(ants[1])},
	}
	pol := make([]byte, 2)
	if _, err := io.ReadFull(r.r, pol); err != nil {
		return nil, fmt.Errorf("error reading polarization: %w", unexpected(err))
	}
	rec.Polarization = strings.TrimSpace(string(pol))
	var times [2]float64
	if err := binary.Read(r.r, binary.LittleEndian, &times); err != nil {
		return nil, fmt.Errorf("error reading time: %w", unexpected(err))
	}
	rec.Time, rec.LST = times[0], times[1]

	if err := binary.Read(r.r, binary.LittleEndian, r.buf); err != nil {
		return nil, fmt.Errorf("error reading samples: %w", unexpected(err))
	}
	if _, err := io.ReadFull(r.r, r.flags); err != nil {
		return nil, fmt.Errorf("error reading flags: %w", unexpected(err))
	}

	rec.Samples = make([]complex128, r.meta.NChan)
	rec.Flags = make([]bool, r.meta.NChan)
	for i := range rec.Samples {
		rec.Samples[i] = complex(float64(r.buf[2*i]), float64(r.buf[2*i+1]))
		rec.Flags[i] = r.flags[i] != 0
	}
	return rec, nil
}

func (r *FileReader) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}

// A record cut short is a truncated file, not a clean end of input.
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Writer produces .uvb files.
type Writer struct {
	w    *bufio.Writer
	meta Metadata
}

// NewWriter writes the header for meta to w.
func NewWriter(w io.Writer, meta Metadata) (*Writer, error) {
	if err := checkNChan(meta.NChan); err != nil {
		return nil, err
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(fileMagic); err != nil {
		return nil, err
	}
	if err := binary.Write(bw, binary.LittleEndian, fileVersion); err != nil {
		return nil, err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(meta.NChan)); err != nil {
		return nil, err
	}
	for _, v := range []float64{meta.SFreq, meta.SDF, meta.IntTime} {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	src := []byte(meta.Source)
	if len(src) > math.MaxUint8 {
		src = src[:math.MaxUint8]
	}
	if err := bw.WriteByte(uint8(len(src))); err != nil {
		return nil, err
	}
	if _, err := bw.Write(src); err != nil {
		return nil, err
	}
	return &Writer{w: bw, meta: meta}, nil
}

// Write appends one record. The polarization is truncated or padded to two
// bytes.
func (w *Writer) Write(rec *Record) error {
	if len(rec.Samples) != w.meta.NChan {
		return fmt.Errorf("record has %d samples, file has %d channels", len(rec.Samples), w.meta.NChan)
	}
	if rec.Flags != nil && len(rec.Flags) != w.meta.NChan {
		return fmt.Errorf("record has %d flags, file has %d channels", len(rec.Flags), w.meta.NChan)
	}
	if err := binary.Write(w.w, binary.LittleEndian, [2]int32{int32(rec.Baseline.I), int32(rec.Baseline.J)}); err != nil {
		return err
	}
	pol := []byte((rec.Polarization + "  ")[:2])
	if _, err := w.w.Write(pol); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, [2]float64{rec.Time, rec.LST}); err != nil {
		return err
	}
	samples := make([]float32, 2*len(rec.Samples))
	for i, s := range rec.Samples {
		samples[2*i] = float32(real(s))
		samples[2*i+1] = float32(imag(s))
	}
	if err := binary.Write(w.w, binary.LittleEndian, samples); err != nil {
		return err
	}
	flags := make([]byte, w.meta.NChan)
	for i := range flags {
		if rec.Flags != nil && rec.Flags[i] {
			flags[i] = 1
		}
	}
	_, err := w.w.Write(flags)
	return err
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
