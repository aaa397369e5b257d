// Package recorder persists decoded thermal frames as chunked raw files with
// a JSON run header and a binary seek index, so long unattended acquisitions
// can be replayed or post-processed without the camera.
package recorder

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lupm-obs/tau2grab/internal/frame"
)

// ChunkSize is the number of frames per chunk file. At 657 KB per decoded
// frame this keeps chunk files near 150 MB.
const ChunkSize = 250

// frameBytes is the fixed on-disk size of one frame: little-endian int16
// counts, row-major.
const frameBytes = 2 * frame.Width * frame.Height

// RunHeader describes one recorded acquisition run.
type RunHeader struct {
	Version      string `json:"version"`
	CreatedNs    int64  `json:"created_ns"`
	SessionID    string `json:"session_id"`
	CameraSerial uint32 `json:"camera_serial"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	TotalFrames  uint64 `json:"total_frames"`
	DroppedGaps  uint64 `json:"dropped_gaps"`
	StartNs      int64  `json:"start_ns"`
	EndNs        int64  `json:"end_ns"`
}

// IndexEntry locates one frame in the chunk files.
type IndexEntry struct {
	FrameID     uint64
	TimestampNs int64
	ChunkID     uint32
	Offset      uint32
}

// Recorder writes frames for one run under a base directory:
// header.json, index.bin, and frames/chunk_NNNN.raw files.
type Recorder struct {
	basePath string

	header       RunHeader
	index        []IndexEntry
	currentChunk int
	chunkFile    *os.File
	chunkOffset  uint32

	mu     sync.Mutex
	closed bool
}

// NewRecorder creates a run directory and an empty recorder. An empty
// basePath selects a timestamped directory under the system temp dir.
func NewRecorder(basePath, sessionID string, cameraSerial uint32) (*Recorder, error) {
	if basePath == "" {
		basePath = filepath.Join(os.TempDir(), fmt.Sprintf("tau2run_%s_%d", sessionID, time.Now().Unix()))
	}
	if err := os.MkdirAll(filepath.Join(basePath, "frames"), 0755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}

	return &Recorder{
		basePath:     basePath,
		currentChunk: -1,
		header: RunHeader{
			Version:      "1.0",
			CreatedNs:    time.Now().UnixNano(),
			SessionID:    sessionID,
			CameraSerial: cameraSerial,
			Width:        frame.Width,
			Height:       frame.Height,
		},
	}, nil
}

// Record appends one decoded frame. A nil image is a gap left by a damaged
// frame; it is counted but nothing is written, so frame IDs stay aligned
// with the wall clock rather than with disk offsets.
func (r *Recorder) Record(im *frame.Image, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("recorder is closed")
	}

	ts := at.UnixNano()
	if r.header.StartNs == 0 {
		r.header.StartNs = ts
	}
	r.header.EndNs = ts

	if im == nil {
		r.header.DroppedGaps++
		return nil
	}

	chunkIdx := int(r.header.TotalFrames / ChunkSize)
	if chunkIdx != r.currentChunk {
		if err := r.rotateChunk(chunkIdx); err != nil {
			return err
		}
	}

	buf := make([]byte, frameBytes)
	for i, v := range im.Pixels {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	if _, err := r.chunkFile.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	r.index = append(r.index, IndexEntry{
		FrameID:     r.header.TotalFrames,
		TimestampNs: ts,
		ChunkID:     uint32(chunkIdx),
		Offset:      r.chunkOffset,
	})
	r.chunkOffset += frameBytes
	r.header.TotalFrames++

	return nil
}

func (r *Recorder) rotateChunk(chunkIdx int) error {
	if r.chunkFile != nil {
		if err := r.chunkFile.Close(); err != nil {
			return err
		}
	}

	chunkPath := filepath.Join(r.basePath, "frames", fmt.Sprintf("chunk_%04d.raw", chunkIdx))
	f, err := os.Create(chunkPath)
	if err != nil {
		return fmt.Errorf("create chunk file: %w", err)
	}

	r.chunkFile = f
	r.currentChunk = chunkIdx
	r.chunkOffset = 0
	return nil
}

// Close finalises the run: flushes the open chunk, then writes header.json
// and index.bin. Safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.chunkFile != nil {
		if err := r.chunkFile.Close(); err != nil {
			return err
		}
	}

	headerData, err := json.MarshalIndent(r.header, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run header: %w", err)
	}
	if err := os.WriteFile(filepath.Join(r.basePath, "header.json"), headerData, 0644); err != nil {
		return fmt.Errorf("write run header: %w", err)
	}

	indexFile, err := os.Create(filepath.Join(r.basePath, "index.bin"))
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer indexFile.Close()

	for _, entry := range r.index {
		if err := binary.Write(indexFile, binary.LittleEndian, entry); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the run directory.
func (r *Recorder) Path() string { return r.basePath }

// FrameCount returns the number of frames written so far.
func (r *Recorder) FrameCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.header.TotalFrames
}

// Reader replays a finished run.
type Reader struct {
	basePath string
	header   RunHeader
	index    []IndexEntry

	currentChunk int
	chunkData    []byte
}

// OpenRun opens a recorded run directory for reading.
func OpenRun(basePath string) (*Reader, error) {
	rd := &Reader{basePath: basePath, currentChunk: -1}

	headerData, err := os.ReadFile(filepath.Join(basePath, "header.json"))
	if err != nil {
		return nil, fmt.Errorf("read run header: %w", err)
	}
	if err := json.Unmarshal(headerData, &rd.header); err != nil {
		return nil, fmt.Errorf("parse run header: %w", err)
	}

	indexFile, err := os.Open(filepath.Join(basePath, "index.bin"))
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer indexFile.Close()

	rd.index = make([]IndexEntry, 0, rd.header.TotalFrames)
	for {
		var entry IndexEntry
		if err := binary.Read(indexFile, binary.LittleEndian, &entry); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read index: %w", err)
		}
		rd.index = append(rd.index, entry)
	}
	return rd, nil
}

// Header returns the run header.
func (rd *Reader) Header() RunHeader { return rd.header }

// FrameCount returns the number of frames in the run.
func (rd *Reader) FrameCount() uint64 { return rd.header.TotalFrames }

// Frame reads frame i, loading its chunk on demand.
func (rd *Reader) Frame(i uint64) (*frame.Image, time.Time, error) {
	if i >= uint64(len(rd.index)) {
		return nil, time.Time{}, fmt.Errorf("frame %d out of range (run has %d)", i, len(rd.index))
	}
	entry := rd.index[i]

	if int(entry.ChunkID) != rd.currentChunk {
		chunkPath := filepath.Join(rd.basePath, "frames", fmt.Sprintf("chunk_%04d.raw", entry.ChunkID))
		data, err := os.ReadFile(chunkPath)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("read chunk: %w", err)
		}
		rd.chunkData = data
		rd.currentChunk = int(entry.ChunkID)
	}

	if int(entry.Offset)+frameBytes > len(rd.chunkData) {
		return nil, time.Time{}, fmt.Errorf("frame %d: chunk truncated", i)
	}

	raw := rd.chunkData[entry.Offset : int(entry.Offset)+frameBytes]
	im := &frame.Image{Pixels: make([]int16, frame.Width*frame.Height)}
	for j := range im.Pixels {
		im.Pixels[j] = int16(binary.LittleEndian.Uint16(raw[j*2:]))
	}
	return im, time.Unix(0, entry.TimestampNs), nil
}
