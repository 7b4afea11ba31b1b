package timetable

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"

	"transit_router/pkg/path"
	"transit_router/pkg/transfer"
)

const (
	magicBytes  = "TRTTABLE"
	version     = uint32(1)
	maxStops    = 5_000_000
	maxTrips    = 20_000_000
	maxTimes    = 500_000_000
	maxStrLen   = 1<<16 - 1
	maxPatterns = 10_000_000
)

// fileHeader is the binary header.
type fileHeader struct {
	Magic           [8]byte
	Version         uint32
	NumStops        uint32
	NumPatterns     uint32
	NumPatternStops uint32
	NumTrips        uint32
	NumTimes        uint32
	NumTransfers    uint32
	TransferSlack   int32
}

// WriteBinary serializes a timetable to a binary file. The file is written
// to a temporary path and renamed into place.
func WriteBinary(filename string, tt *Timetable) error {
	tmpPath := filename + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	crcWriter := crc32Writer{w: f, hash: crc32.NewIEEE()}
	w := &crcWriter

	n := len(tt.Stops)
	patFirst := make([]uint32, len(tt.Patterns)+1)
	var patStops []int32
	for i, p := range tt.Patterns {
		patStops = append(patStops, p.Stops...)
		patFirst[i+1] = uint32(len(patStops))
	}
	tripPattern := make([]int32, len(tt.Trips))
	var arrivals, departures []int32
	for i, t := range tt.Trips {
		tripPattern[i] = int32(t.pattern.Index)
		arrivals = append(arrivals, t.arrivals...)
		departures = append(departures, t.departures...)
	}

	hdr := fileHeader{
		Version:         version,
		NumStops:        uint32(n),
		NumPatterns:     uint32(len(tt.Patterns)),
		NumPatternStops: uint32(len(patStops)),
		NumTrips:        uint32(len(tt.Trips)),
		NumTimes:        uint32(len(arrivals)),
		NumTransfers:    uint32(len(tt.Transfers)),
		TransferSlack:   int32(tt.transferSlack),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Strings.
	if err := writeString(w, tt.ServiceDate); err != nil {
		return fmt.Errorf("write ServiceDate: %w", err)
	}
	for _, s := range tt.Stops {
		if err := writeString(w, s.ID); err != nil {
			return fmt.Errorf("write stop ID: %w", err)
		}
		if err := writeString(w, s.Name); err != nil {
			return fmt.Errorf("write stop Name: %w", err)
		}
	}
	for _, p := range tt.Patterns {
		if err := writeString(w, p.Route); err != nil {
			return fmt.Errorf("write pattern Route: %w", err)
		}
	}
	for _, t := range tt.Trips {
		if err := writeString(w, t.ID); err != nil {
			return fmt.Errorf("write trip ID: %w", err)
		}
	}

	// Stop data.
	lat := make([]float64, n)
	lon := make([]float64, n)
	board := make([]int32, n)
	alight := make([]int32, n)
	prio := make([]uint8, n)
	for i, s := range tt.Stops {
		lat[i], lon[i] = s.Lat, s.Lon
		board[i], alight[i] = int32(s.BoardSlack), int32(s.AlightSlack)
		prio[i] = uint8(s.Priority)
	}
	if err := writeFloat64Slice(w, lat); err != nil {
		return fmt.Errorf("write StopLat: %w", err)
	}
	if err := writeFloat64Slice(w, lon); err != nil {
		return fmt.Errorf("write StopLon: %w", err)
	}
	if err := writeInt32Slice(w, board); err != nil {
		return fmt.Errorf("write BoardSlack: %w", err)
	}
	if err := writeInt32Slice(w, alight); err != nil {
		return fmt.Errorf("write AlightSlack: %w", err)
	}
	if err := writeBytes(w, prio); err != nil {
		return fmt.Errorf("write Priority: %w", err)
	}

	// Patterns and trips.
	if err := writeUint32Slice(w, patFirst); err != nil {
		return fmt.Errorf("write PatternFirst: %w", err)
	}
	if err := writeInt32Slice(w, patStops); err != nil {
		return fmt.Errorf("write PatternStops: %w", err)
	}
	if err := writeInt32Slice(w, tripPattern); err != nil {
		return fmt.Errorf("write TripPattern: %w", err)
	}
	if err := writeInt32Slice(w, arrivals); err != nil {
		return fmt.Errorf("write Arrivals: %w", err)
	}
	if err := writeInt32Slice(w, departures); err != nil {
		return fmt.Errorf("write Departures: %w", err)
	}

	// Transfers.
	m := len(tt.Transfers)
	from := make([]int32, m)
	to := make([]int32, m)
	dur := make([]int32, m)
	c1 := make([]int32, m)
	modes := make([]uint8, m)
	for i, t := range tt.Transfers {
		from[i], to[i] = int32(t.From), int32(t.To)
		dur[i], c1[i] = int32(t.Duration), int32(t.C1)
		modes[i] = uint8(t.Modes)
	}
	for _, s := range [][]int32{from, to, dur, c1} {
		if err := writeInt32Slice(w, s); err != nil {
			return fmt.Errorf("write transfers: %w", err)
		}
	}
	if err := writeBytes(w, modes); err != nil {
		return fmt.Errorf("write transfer Modes: %w", err)
	}

	// Write CRC32 trailer.
	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filename); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadBinary deserializes a timetable written by WriteBinary.
func ReadBinary(filename string) (*Timetable, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	crcReader := crc32Reader{r: f, hash: crc32.NewIEEE()}
	r := &crcReader

	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("%w: invalid magic bytes %q", ErrInvalidTimetable, hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidTimetable, hdr.Version)
	}
	switch {
	case hdr.NumStops > maxStops:
		return nil, fmt.Errorf("%w: NumStops %d exceeds limit %d", ErrInvalidTimetable, hdr.NumStops, maxStops)
	case hdr.NumPatterns > maxPatterns || hdr.NumPatternStops > maxTimes:
		return nil, fmt.Errorf("%w: pattern count exceeds limit", ErrInvalidTimetable)
	case hdr.NumTrips > maxTrips:
		return nil, fmt.Errorf("%w: NumTrips %d exceeds limit %d", ErrInvalidTimetable, hdr.NumTrips, maxTrips)
	case hdr.NumTimes > maxTimes || hdr.NumTransfers > maxTimes:
		return nil, fmt.Errorf("%w: time or transfer count exceeds limit", ErrInvalidTimetable)
	case hdr.TransferSlack < 0:
		return nil, fmt.Errorf("%w: negative transfer slack", ErrInvalidTimetable)
	}
	n := int(hdr.NumStops)

	date, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("read ServiceDate: %w", err)
	}
	stops := make([]Stop, n)
	for i := range stops {
		if stops[i].ID, err = readString(r); err != nil {
			return nil, fmt.Errorf("read stop ID: %w", err)
		}
		if stops[i].Name, err = readString(r); err != nil {
			return nil, fmt.Errorf("read stop Name: %w", err)
		}
	}
	patterns := make([]*Pattern, hdr.NumPatterns)
	for i := range patterns {
		p := &Pattern{Index: i}
		if p.Route, err = readString(r); err != nil {
			return nil, fmt.Errorf("read pattern Route: %w", err)
		}
		patterns[i] = p
	}
	trips := make([]*Trip, hdr.NumTrips)
	for i := range trips {
		t := &Trip{index: i}
		if t.ID, err = readString(r); err != nil {
			return nil, fmt.Errorf("read trip ID: %w", err)
		}
		trips[i] = t
	}

	lat, err := readFloat64Slice(r, n)
	if err != nil {
		return nil, fmt.Errorf("read StopLat: %w", err)
	}
	lon, err := readFloat64Slice(r, n)
	if err != nil {
		return nil, fmt.Errorf("read StopLon: %w", err)
	}
	board, err := readInt32Slice(r, n)
	if err != nil {
		return nil, fmt.Errorf("read BoardSlack: %w", err)
	}
	alight, err := readInt32Slice(r, n)
	if err != nil {
		return nil, fmt.Errorf("read AlightSlack: %w", err)
	}
	prio, err := readBytes(r, n)
	if err != nil {
		return nil, fmt.Errorf("read Priority: %w", err)
	}
	for i := range stops {
		stops[i].Lat, stops[i].Lon = lat[i], lon[i]
		stops[i].BoardSlack, stops[i].AlightSlack = int(board[i]), int(alight[i])
		stops[i].Priority = path.Priority(prio[i])
	}

	patFirst, err := readUint32Slice(r, int(hdr.NumPatterns)+1)
	if err != nil {
		return nil, fmt.Errorf("read PatternFirst: %w", err)
	}
	patStops, err := readInt32Slice(r, int(hdr.NumPatternStops))
	if err != nil {
		return nil, fmt.Errorf("read PatternStops: %w", err)
	}
	tripPattern, err := readInt32Slice(r, int(hdr.NumTrips))
	if err != nil {
		return nil, fmt.Errorf("read TripPattern: %w", err)
	}
	arrivals, err := readInt32Slice(r, int(hdr.NumTimes))
	if err != nil {
		return nil, fmt.Errorf("read Arrivals: %w", err)
	}
	departures, err := readInt32Slice(r, int(hdr.NumTimes))
	if err != nil {
		return nil, fmt.Errorf("read Departures: %w", err)
	}

	m := int(hdr.NumTransfers)
	var cols [4][]int32
	for i := range cols {
		if cols[i], err = readInt32Slice(r, m); err != nil {
			return nil, fmt.Errorf("read transfers: %w", err)
		}
	}
	modes, err := readBytes(r, m)
	if err != nil {
		return nil, fmt.Errorf("read transfer Modes: %w", err)
	}

	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("%w: CRC32 mismatch: stored=%08x computed=%08x", ErrInvalidTimetable, storedCRC, expectedCRC)
	}

	if err := validateCSR(patFirst, patStops, hdr.NumStops); err != nil {
		return nil, fmt.Errorf("%w: pattern CSR invalid: %v", ErrInvalidTimetable, err)
	}
	for i, p := range patterns {
		p.Stops = patStops[patFirst[i]:patFirst[i+1]]
		if len(p.Stops) < 2 {
			return nil, fmt.Errorf("%w: pattern %d has fewer than two stops", ErrInvalidTimetable, i)
		}
	}

	// Trips are stored pattern-major; the time arrays are sliced in place.
	off := 0
	for i, t := range trips {
		pi := int(tripPattern[i])
		if pi < 0 || pi >= len(patterns) {
			return nil, fmt.Errorf("%w: trip %d references pattern %d", ErrInvalidTimetable, i, pi)
		}
		if i > 0 && pi < int(tripPattern[i-1]) {
			return nil, fmt.Errorf("%w: trips not grouped by pattern at %d", ErrInvalidTimetable, i)
		}
		p := patterns[pi]
		k := len(p.Stops)
		if off+k > len(arrivals) {
			return nil, fmt.Errorf("%w: trip %d runs past the time table", ErrInvalidTimetable, i)
		}
		t.pattern = p
		t.arrivals = arrivals[off : off+k : off+k]
		t.departures = departures[off : off+k : off+k]
		off += k
		p.Trips = append(p.Trips, t)
	}
	if off != len(arrivals) {
		return nil, fmt.Errorf("%w: %d trailing times", ErrInvalidTimetable, len(arrivals)-off)
	}

	transfers := make([]transfer.Transfer, m)
	for i := range transfers {
		transfers[i] = transfer.Transfer{
			From:     int(cols[0][i]),
			To:       int(cols[1][i]),
			Duration: int(cols[2][i]),
			C1:       int(cols[3][i]),
			Modes:    transfer.Mode(modes[i]),
		}
	}

	return assemble(date, stops, patterns, trips, transfers, int(hdr.TransferSlack))
}

// validateCSR checks CSR invariants.
func validateCSR(first []uint32, head []int32, numStops uint32) error {
	numRows := len(first) - 1
	if numRows < 0 {
		return fmt.Errorf("empty First array")
	}
	if first[0] != 0 {
		return fmt.Errorf("First[0]=%d != 0", first[0])
	}
	if int(first[numRows]) != len(head) {
		return fmt.Errorf("Head length %d != First[last] %d", len(head), first[numRows])
	}
	for i := 1; i <= numRows; i++ {
		if first[i] < first[i-1] {
			return fmt.Errorf("First not monotonic at %d: %d < %d", i, first[i], first[i-1])
		}
	}
	for i, h := range head {
		if h < 0 || uint32(h) >= numStops {
			return fmt.Errorf("Head[%d]=%d out of range [0, %d)", i, h, numStops)
		}
	}
	return nil
}

func writeString(w io.Writer, s string) error {
	if len(s) > maxStrLen {
		return fmt.Errorf("string of %d bytes exceeds limit %d", len(s), maxStrLen)
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b, err := readBytes(r, int(n))
	return string(b), err
}

// Zero-copy I/O helpers using unsafe.Slice.

func writeBytes(w io.Writer, b []byte) error {
	if len(b) == 0 {
		return nil
	}
	_, err := w.Write(b)
	return err
}

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeInt32Slice(w io.Writer, s []int32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readInt32Slice(r io.Reader, n int) ([]int32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]int32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// CRC32 wrapping writers/readers.

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
