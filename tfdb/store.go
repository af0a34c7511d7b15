package tfdb

import (
	"bytes"
	"compress/zlib"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/creachadair/mds/mbits"
	"golang.org/x/crypto/chacha20poly1305"
)

// Format is the storage format label written by this package.
const Format = "tf1"

// keyLen is the cipher key length in bytes.
const keyLen = chacha20poly1305.KeySize

// A Store is an encrypted container holding a DB. Its contents are
// encrypted as described in the package comment. A Store is safe for
// concurrent readers, but mutation of the database and WriteTo require
// external coordination by the caller.
type Store struct {
	sealedKey []byte // data key, sealed with the access key
	dataKey   []byte // plaintext data key
	salt      []byte // access key derivation salt
	db        *DB
}

// storeJSON is the wire structure used to persist a Store.
type storeJSON struct {
	Format  string `json:"format"`            // currently tfdb.Format
	DataKey []byte `json:"dataKey"`           // sealed with the access key
	Data    []byte `json:"data"`              // sealed with the data key
	KeySalt []byte `json:"keySalt,omitempty"` // access key derivation salt

	// The data payload is compressed with zlib prior to encryption.
}

func newStore(akey, salt []byte, init *DB) (*Store, error) {
	dataKey := make([]byte, keyLen)
	if _, err := crand.Read(dataKey); err != nil {
		return nil, fmt.Errorf("generate data key: %w", err)
	}
	sealed, err := seal(akey, dataKey, nil)
	if err != nil {
		return nil, fmt.Errorf("seal data key: %w", err)
	}
	if init == nil {
		init = new(DB)
	}
	return &Store{sealedKey: sealed, dataKey: dataKey, salt: salt, db: init}, nil
}

func openStore(r io.Reader, keyFor func(salt []byte) []byte) (*Store, error) {
	// Consume the entire input so there cannot be trailing junk after
	// the encoded object when stored in a file.
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	var s storeJSON
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}

	// Unseal the data key with the access key derived from the salt.
	dataKey, err := open(keyFor(s.KeySalt), s.DataKey, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt data key: %w", err)
	}

	// Unseal the payload. The format label was bound as extra data when
	// the payload was sealed, so a mismatched version fails here.
	data, err := open(dataKey, s.Data, []byte(s.Format))
	if err != nil {
		mbits.Zero(dataKey)
		return nil, fmt.Errorf("decrypt database: %w", err)
	}
	plain, err := decompress(data)
	mbits.Zero(data)
	if err != nil {
		mbits.Zero(dataKey)
		return nil, fmt.Errorf("decompress database: %w", err)
	}

	// Decode the database and discard the raw plaintext.
	var db DB
	err = json.Unmarshal(plain, &db)
	mbits.Zero(plain)
	if err != nil {
		mbits.Zero(dataKey)
		return nil, fmt.Errorf("decode database: %w", err)
	}
	return &Store{sealedKey: s.DataKey, dataKey: dataKey, salt: s.KeySalt, db: &db}, nil
}

// WriteTo encodes and encrypts the current contents of s and writes it
// to w.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("invalid store value")
	}
	plain, err := json.Marshal(s.db)
	if err != nil {
		return 0, fmt.Errorf("encode database: %w", err)
	}
	data, err := seal(s.dataKey, compress(plain), []byte(Format))
	mbits.Zero(plain)
	if err != nil {
		return 0, fmt.Errorf("encrypt database: %w", err)
	}
	pkt, err := json.Marshal(storeJSON{
		Format:  Format,
		DataKey: s.sealedKey, // N.B. never the plaintext key
		Data:    data,
		KeySalt: s.salt,
	})
	if err != nil {
		return 0, fmt.Errorf("encode output: %w", err)
	}
	nw, err := w.Write(pkt)
	return int64(nw), err
}

// DB returns the database held by s. The result is never nil.
// If s == nil or points to an invalid Store, DB panics.
func (s *Store) DB() *DB {
	if s.db == nil {
		panic("uninitialized store")
	}
	return s.db
}

// seal encrypts data with key using the AEAD construction over
// XChaCha20-Poly1305, binding extra as associated data. The random
// nonce is prepended to the result.
func seal(key, data, extra []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("initialize cipher: %w", err)
	}
	buf := make([]byte, aead.NonceSize(), aead.NonceSize()+len(data)+aead.Overhead())
	if _, err := crand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(buf, buf, data, extra), nil
}

// open inverts seal.
func open(key, data, extra []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("initialize cipher: %w", err)
	}
	if len(data) < aead.NonceSize() {
		return nil, errors.New("malformed input: short nonce")
	}
	return aead.Open(nil, data[:aead.NonceSize()], data[aead.NonceSize():], extra)
}

func compress(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	if err := w.Close(); err != nil {
		panic(fmt.Sprintf("zlib close: %v", err))
	}
	return buf.Bytes()
}

func decompress(data []byte) ([]byte, error) {
	rc, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
