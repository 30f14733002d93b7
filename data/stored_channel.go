package data

import (
	"bytes"
	"encoding/gob"
)

// StoredChannel stores attributes for channels. NetID separates channels of
// the same name across different stored networks.
type StoredChannel struct {
	NetID string
	Name  string
	JSONStorer
}

// NewStoredChannel creates a new stored channel.
func NewStoredChannel(name string) *StoredChannel {
	return &StoredChannel{Name: name, JSONStorer: make(JSONStorer)}
}

// serialize turns the stored channel into bytes for storage.
func (s *StoredChannel) serialize() ([]byte, error) {
	buffer := &bytes.Buffer{}
	encoder := gob.NewEncoder(buffer)
	if err := encoder.Encode(s); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// deserializeChannel reverses the serialize process.
func deserializeChannel(serialized []byte) (*StoredChannel, error) {
	buffer := bytes.NewBuffer(serialized)
	decoder := gob.NewDecoder(buffer)
	dec := &StoredChannel{}
	err := decoder.Decode(dec)
	return dec, err
}
