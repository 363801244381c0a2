package snapshot

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/thepwagner/clrm/command"
	"golang.org/x/crypto/sha3"
)

// Version of the jar format written by Save.
const Version = 1

// Jar is the persisted state of a built system. Hooks reference commands
// by name and are resolved against the registry when replayed.
type Jar struct {
	Version       int                              `json:"version"`
	System        string                           `json:"system"`
	Timestamp     string                           `json:"timestamp"`
	Bases         []string                         `json:"bases"`
	Substitutions map[string]string                `json:"substitutions"`
	Hooks         map[string][]*command.ExecRecord `json:"hooks"`
}

type envelope struct {
	Checksum string          `json:"checksum"`
	Payload  json.RawMessage `json:"payload"`
}

func checksum(b []byte) string {
	sum := make([]byte, 32)
	sha3.ShakeSum256(sum, b)
	return hex.EncodeToString(sum)
}

// Save writes the jar to path, replacing any existing file atomically.
func (j *Jar) Save(path string) error {
	if j.Version == 0 {
		j.Version = Version
	}
	payload, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encoding jar: %w", err)
	}
	b, err := json.Marshal(&envelope{Checksum: checksum(payload), Payload: payload})
	if err != nil {
		return fmt.Errorf("encoding jar: %w", err)
	}

	tmp, err := ioutil.TempFile(filepath.Dir(path), ".pickle-*")
	if err != nil {
		return fmt.Errorf("creating jar: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing jar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing jar: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing jar: %w", err)
	}
	return nil
}

// Load reads and verifies the jar at path.
func Load(path string) (*Jar, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

func Decode(b []byte) (*Jar, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decoding jar: %w", err)
	}
	if sum := checksum(env.Payload); sum != env.Checksum {
		return nil, fmt.Errorf("jar checksum mismatch: %s != %s", sum, env.Checksum)
	}
	var j Jar
	if err := json.Unmarshal(env.Payload, &j); err != nil {
		return nil, fmt.Errorf("decoding jar: %w", err)
	}
	if j.Version != Version {
		return nil, fmt.Errorf("unsupported jar version %d", j.Version)
	}
	if j.Substitutions == nil {
		j.Substitutions = map[string]string{}
	}
	if j.Hooks == nil {
		j.Hooks = map[string][]*command.ExecRecord{}
	}
	return &j, nil
}

// Clone returns a deep copy of the jar.
func (j *Jar) Clone() *Jar {
	cp := &Jar{
		Version:       j.Version,
		System:        j.System,
		Timestamp:     j.Timestamp,
		Bases:         append([]string(nil), j.Bases...),
		Substitutions: make(map[string]string, len(j.Substitutions)),
		Hooks:         make(map[string][]*command.ExecRecord, len(j.Hooks)),
	}
	for k, v := range j.Substitutions {
		cp.Substitutions[k] = v
	}
	for phase, recs := range j.Hooks {
		cpRecs := make([]*command.ExecRecord, 0, len(recs))
		for _, r := range recs {
			cpRecs = append(cpRecs, r.Copy())
		}
		cp.Hooks[phase] = cpRecs
	}
	return cp
}
