package sidechannel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
)

// ErrorCodeRegistry is the file-backed code -> message map filled by error
// extraction. Entries are only ever added. Codes are allocated as one past the
// highest known code, so repeated extraction over the same sources converges
// on a stable mapping.
type ErrorCodeRegistry struct {
	mu        sync.Mutex
	path      string
	byCode    map[int]string
	byMessage map[string]int
	next      int
	dirty     bool
}

// LoadErrorCodeRegistry reads the registry at path. A missing or empty file
// is an empty registry; an unparsable one is an error so it is never
// overwritten with partial content.
func LoadErrorCodeRegistry(path string) (*ErrorCodeRegistry, error) {
	codes, err := readCodes(path)
	if err != nil {
		return nil, err
	}
	r := &ErrorCodeRegistry{path: path}
	r.reset(codes)
	return r, nil
}

// Path returns the backing file.
func (r *ErrorCodeRegistry) Path() string {
	return r.path
}

// Register returns the code for message, allocating one when the message is
// new. added reports whether an allocation happened.
func (r *ErrorCodeRegistry) Register(message string) (code int, added bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if code, ok := r.byMessage[message]; ok {
		return code, false
	}
	code = r.next
	r.next++
	r.byCode[code] = message
	r.byMessage[message] = code
	r.dirty = true
	return code, true
}

// Code looks up the code of message.
func (r *ErrorCodeRegistry) Code(message string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.byMessage[message]
	return code, ok
}

// Message looks up the message of code.
func (r *ErrorCodeRegistry) Message(code int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.byCode[code]
	return msg, ok
}

// Len returns the number of codes.
func (r *ErrorCodeRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byCode)
}

// Codes returns a copy of the code -> message map.
func (r *ErrorCodeRegistry) Codes() map[int]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int]string, len(r.byCode))
	for code, msg := range r.byCode {
		out[code] = msg
	}
	return out
}

// Flush merges the in-memory entries into the file. The file is re-read
// first: its entries are kept as they are, a message already on disk keeps
// the disk code, and an in-memory code taken by a different message on disk
// moves past the highest merged code. The result replaces the file atomically
// and becomes the in-memory state.
func (r *ErrorCodeRegistry) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.dirty {
		return nil
	}

	disk, err := readCodes(r.path)
	if err != nil {
		return err
	}

	merged := &ErrorCodeRegistry{path: r.path}
	merged.reset(disk)
	for _, code := range sortedCodes(r.byCode) {
		msg := r.byCode[code]
		if _, ok := merged.byMessage[msg]; ok {
			continue
		}
		if _, taken := merged.byCode[code]; taken {
			code = merged.next
		}
		merged.byCode[code] = msg
		merged.byMessage[msg] = code
		if code >= merged.next {
			merged.next = code + 1
		}
	}

	if err := writeCodes(r.path, merged.byCode); err != nil {
		return err
	}
	r.byCode = merged.byCode
	r.byMessage = merged.byMessage
	r.next = merged.next
	r.dirty = false
	return nil
}

func (r *ErrorCodeRegistry) reset(codes map[int]string) {
	r.byCode = codes
	r.byMessage = make(map[string]int, len(codes))
	r.next = 0
	for code, msg := range codes {
		// A message listed twice resolves to its lowest code.
		if existing, ok := r.byMessage[msg]; !ok || code < existing {
			r.byMessage[msg] = code
		}
		if code >= r.next {
			r.next = code + 1
		}
	}
}

func readCodes(path string) (map[int]string, error) {
	codes := make(map[int]string)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return codes, nil
		}
		return nil, fmt.Errorf("failed to read error codes: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return codes, nil
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse error codes %s: %w", path, err)
	}
	for key, msg := range raw {
		code, err := strconv.Atoi(key)
		if err != nil || code < 0 {
			return nil, fmt.Errorf("error codes %s: code %q is not a non-negative integer", path, key)
		}
		codes[code] = msg
	}
	return codes, nil
}

// writeCodes writes codes in ascending numeric order with two-space indent,
// matching what JavaScript tooling produces for the same object.
func writeCodes(path string, codes map[int]string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteString("{")
	for i, code := range sortedCodes(codes) {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		if err := enc.Encode(strconv.Itoa(code)); err != nil {
			return err
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteString(": ")
		if err := enc.Encode(codes[code]); err != nil {
			return err
		}
		buf.Truncate(buf.Len() - 1)
	}
	if len(codes) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create error codes directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".codes-*.json")
	if err != nil {
		return fmt.Errorf("failed to write error codes: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write error codes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write error codes: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace error codes: %w", err)
	}
	return nil
}

func sortedCodes(codes map[int]string) []int {
	keys := make([]int, 0, len(codes))
	for code := range codes {
		keys = append(keys, code)
	}
	sort.Ints(keys)
	return keys
}
