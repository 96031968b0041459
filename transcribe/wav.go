package transcribe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// WAVInfo is the format block of a RIFF/WAVE file.
type WAVInfo struct {
	Format        uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
	DataBytes     uint32
}

const wavFormatPCM = 1

// ReadWAVInfo parses the header of the WAV file at path.
func ReadWAVInfo(path string) (WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVInfo{}, err
	}
	defer f.Close()
	return readWAVInfo(f)
}

// ValidateWAV checks that path holds non-empty 16-bit mono PCM audio.
func ValidateWAV(path string) (WAVInfo, error) {
	info, err := ReadWAVInfo(path)
	if err != nil {
		return info, err
	}
	if info.Format != wavFormatPCM || info.Channels != 1 || info.BitsPerSample != 16 {
		return info, fmt.Errorf("%w: format=%d channels=%d bits=%d",
			ErrUnsupportedAudio, info.Format, info.Channels, info.BitsPerSample)
	}
	if info.DataBytes == 0 {
		return info, ErrEmptyAudio
	}
	return info, nil
}

func readWAVInfo(r io.Reader) (WAVInfo, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return WAVInfo{}, fmt.Errorf("%w: short header", ErrUnsupportedAudio)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return WAVInfo{}, fmt.Errorf("%w: not a RIFF/WAVE file", ErrUnsupportedAudio)
	}

	var (
		info    WAVInfo
		haveFmt bool
	)
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return WAVInfo{}, err
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return WAVInfo{}, fmt.Errorf("%w: fmt chunk too small", ErrUnsupportedAudio)
			}
			var body [16]byte
			if _, err := io.ReadFull(r, body[:]); err != nil {
				return WAVInfo{}, fmt.Errorf("%w: truncated fmt chunk", ErrUnsupportedAudio)
			}
			info.Format = binary.LittleEndian.Uint16(body[0:2])
			info.Channels = binary.LittleEndian.Uint16(body[2:4])
			info.SampleRate = binary.LittleEndian.Uint32(body[4:8])
			info.BitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			haveFmt = true
			if err := skip(r, int64(size-16)+int64(size%2)); err != nil {
				return WAVInfo{}, err
			}
		case "data":
			if !haveFmt {
				return WAVInfo{}, fmt.Errorf("%w: data before fmt chunk", ErrUnsupportedAudio)
			}
			info.DataBytes = size
			return info, nil
		default:
			if err := skip(r, int64(size)+int64(size%2)); err != nil {
				return WAVInfo{}, err
			}
		}
	}

	if !haveFmt {
		return WAVInfo{}, fmt.Errorf("%w: missing fmt chunk", ErrUnsupportedAudio)
	}
	return info, nil
}

func skip(r io.Reader, n int64) error {
	if n == 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("%w: truncated chunk", ErrUnsupportedAudio)
	}
	return nil
}
