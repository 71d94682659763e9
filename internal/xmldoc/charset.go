package xmldoc

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// sniff strips a byte order mark and transcodes UTF-16 input to UTF-8.
// It returns the label of the transcoding already applied, if any.
func sniff(r io.Reader) (io.Reader, string, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(3)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", err
	}
	switch {
	case bytes.HasPrefix(head, bomUTF8):
		_, _ = br.Discard(len(bomUTF8))
		return br, "", nil
	case bytes.HasPrefix(head, bomUTF16BE):
		_, _ = br.Discard(len(bomUTF16BE))
		return transcode(br, "utf-16be")
	case bytes.HasPrefix(head, bomUTF16LE):
		_, _ = br.Discard(len(bomUTF16LE))
		return transcode(br, "utf-16le")
	default:
		return br, "", nil
	}
}

func transcode(r io.Reader, label string) (io.Reader, string, error) {
	decoded, err := charset.NewReaderLabel(label, r)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", label, err)
	}
	return decoded, label, nil
}

// charsetReader returns an encoding/xml CharsetReader. Declarations naming
// the encoding already applied by sniff pass the input through unchanged.
func charsetReader(applied string) func(string, io.Reader) (io.Reader, error) {
	return func(label string, input io.Reader) (io.Reader, error) {
		if applied != "" && strings.HasPrefix(strings.ToLower(label), "utf-16") {
			return input, nil
		}
		return charset.NewReaderLabel(label, input)
	}
}

// DecodeEntity converts the content of an external entity to UTF-8 using its
// byte order mark or the encoding named in its text declaration.
func DecodeEntity(data []byte) ([]byte, error) {
	r, applied, err := sniff(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if applied == "" {
		if label := declaredEncoding(data); label != "" && !isUTF8Label(label) {
			r, err = charset.NewReaderLabel(label, r)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", label, err)
			}
		}
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read entity: %w", err)
	}
	return out, nil
}

func declaredEncoding(data []byte) string {
	data = bytes.TrimPrefix(data, bomUTF8)
	if !bytes.HasPrefix(data, []byte("<?xml")) {
		return ""
	}
	end := bytes.Index(data, []byte("?>"))
	if end < 0 {
		return ""
	}
	decl := string(data[:end])
	idx := strings.Index(decl, "encoding")
	if idx < 0 {
		return ""
	}
	rest := strings.TrimLeft(decl[idx+len("encoding"):], " \t\r\n")
	if !strings.HasPrefix(rest, "=") {
		return ""
	}
	rest = strings.TrimLeft(rest[1:], " \t\r\n")
	if rest == "" || (rest[0] != '"' && rest[0] != '\'') {
		return ""
	}
	quote := rest[0]
	closing := strings.IndexByte(rest[1:], quote)
	if closing < 0 {
		return ""
	}
	return rest[1 : 1+closing]
}

func isUTF8Label(label string) bool {
	switch strings.ToLower(label) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return true
	default:
		return false
	}
}
