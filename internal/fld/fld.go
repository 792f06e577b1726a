// Package fld reads and writes the binary particle files consumed and
// produced by the simulator.
//
// A file is a header followed by fixed-size particle records, all
// little-endian:
//
//	float32 ppm | int32 np | np * (9 * float32)
//
// Input records hold position, half-step velocity and velocity. Output
// records hold position, half-step velocity and acceleration.
package fld

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/san-kum/fluidsim/internal/physics"
)

const (
	HeaderSize = 8
	RecordSize = 9 * 4
)

var order = binary.LittleEndian

var (
	// ErrTruncated indicates the stream ended inside the header or a record.
	ErrTruncated = errors.New("fld: truncated file")
)

type Header struct {
	PPM float32
	NP  int32
}

// Record is one particle of an input file.
type Record struct {
	Position     physics.Vec3f
	HalfVelocity physics.Vec3f
	Velocity     physics.Vec3f
}

// OutputRecord is one particle of an output file.
type OutputRecord struct {
	Position     physics.Vec3f
	HalfVelocity physics.Vec3f
	Acceleration physics.Vec3f
}

type File struct {
	Header  Header
	Records []Record
}

// Count returns the number of records actually read.
func (f *File) Count() int { return len(f.Records) }

// CountMatches reports whether the number of records equals the header count.
func (f *File) CountMatches() bool { return int64(len(f.Records)) == int64(f.Header.NP) }

// Particles converts the records to particles with IDs in file order.
func (f *File) Particles(gravity physics.Vec3) []physics.Particle {
	ps := make([]physics.Particle, len(f.Records))
	for i, r := range f.Records {
		ps[i] = physics.NewParticle(i, r.Position, r.HalfVelocity, r.Velocity, gravity)
	}
	return ps
}

func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, fmt.Errorf("%w: incomplete header", ErrTruncated)
		}
		return Header{}, fmt.Errorf("fld: reading header: %w", err)
	}
	return Header{
		PPM: math.Float32frombits(order.Uint32(buf[0:])),
		NP:  int32(order.Uint32(buf[4:])),
	}, nil
}

// Read parses an input file. Records are read until end of stream regardless
// of the header count; compare with CountMatches.
func Read(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)
	h, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}

	f := &File{Header: h, Records: make([]Record, 0, capHint(h.NP))}
	err = readRecords(br, func(v [9]float32) {
		f.Records = append(f.Records, Record{
			Position:     physics.Vec3f{v[0], v[1], v[2]},
			HalfVelocity: physics.Vec3f{v[3], v[4], v[5]},
			Velocity:     physics.Vec3f{v[6], v[7], v[8]},
		})
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ReadOutput parses a file produced by Write.
func ReadOutput(r io.Reader) (Header, []OutputRecord, error) {
	br := bufio.NewReader(r)
	h, err := ReadHeader(br)
	if err != nil {
		return Header{}, nil, err
	}

	recs := make([]OutputRecord, 0, capHint(h.NP))
	err = readRecords(br, func(v [9]float32) {
		recs = append(recs, OutputRecord{
			Position:     physics.Vec3f{v[0], v[1], v[2]},
			HalfVelocity: physics.Vec3f{v[3], v[4], v[5]},
			Acceleration: physics.Vec3f{v[6], v[7], v[8]},
		})
	})
	if err != nil {
		return Header{}, nil, err
	}
	return h, recs, nil
}

func readRecords(r io.Reader, fn func(v [9]float32)) error {
	var buf [RecordSize]byte
	for n := 0; ; n++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return nil
			case errors.Is(err, io.ErrUnexpectedEOF):
				return fmt.Errorf("%w: partial record %d", ErrTruncated, n)
			default:
				return fmt.Errorf("fld: reading record %d: %w", n, err)
			}
		}

		var v [9]float32
		for i := range v {
			v[i] = math.Float32frombits(order.Uint32(buf[4*i:]))
		}
		fn(v)
	}
}

// capHint bounds the preallocation so a corrupt header cannot force a huge
// allocation.
func capHint(np int32) int {
	const limit = 1 << 20
	if np < 0 {
		return 0
	}
	return min(int(np), limit)
}

// Write encodes h followed by one output record per particle, in the order
// given. Accelerations are narrowed to single precision.
func Write(w io.Writer, h Header, ps []physics.Particle) error {
	return encode(w, h, ps, func(p *physics.Particle) physics.Vec3f {
		return physics.Vec3f{float32(p.Acceleration[0]), float32(p.Acceleration[1]), float32(p.Acceleration[2])}
	})
}

// WriteInput encodes particles as an input file, with velocities as the third
// vector.
func WriteInput(w io.Writer, h Header, ps []physics.Particle) error {
	return encode(w, h, ps, func(p *physics.Particle) physics.Vec3f { return p.Velocity })
}

func encode(w io.Writer, h Header, ps []physics.Particle, third func(p *physics.Particle) physics.Vec3f) error {
	bw := bufio.NewWriter(w)

	buf := make([]byte, 0, RecordSize)
	buf = order.AppendUint32(buf, math.Float32bits(h.PPM))
	buf = order.AppendUint32(buf, uint32(h.NP))
	if _, err := bw.Write(buf); err != nil {
		return fmt.Errorf("fld: writing header: %w", err)
	}

	for i := range ps {
		p := &ps[i]
		buf = buf[:0]
		for _, vec := range [3]physics.Vec3f{p.Position, p.HalfVelocity, third(p)} {
			for _, v := range vec {
				buf = order.AppendUint32(buf, math.Float32bits(v))
			}
		}
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("fld: writing record %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("fld: flushing: %w", err)
	}
	return nil
}

func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

func WriteFile(path string, h Header, ps []physics.Particle) error {
	return createWith(path, func(w io.Writer) error { return Write(w, h, ps) })
}

func WriteInputFile(path string, h Header, ps []physics.Particle) error {
	return createWith(path, func(w io.Writer) error { return WriteInput(w, h, ps) })
}

func createWith(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
