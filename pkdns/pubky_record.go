// Copyright (C) 2025 pubky-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package pkdns

import (
	"encoding/binary"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/pkherr"
)

// currentRecordVersion is the highest PubkyRecord wire version this
// decoder understands.
const currentRecordVersion = 1

// ReservedParamHTTPPort is the reserved HTTPS-RR-style parameter key
// carrying an alternate HTTP port for the chosen homeserver.
const ReservedParamHTTPPort uint16 = 65280

const (
	flagsByteLen = 1
	paramKeyLen  = 2
	paramLenLen  = 2
)

// PubkyRecord is the decoded payload of a `_pubky` record: the
// homeserver's public key plus optional HTTPS-RR-style parameters.
// Unknown trailing parameters are preserved on write, ignored (but
// retained verbatim) on read.
type PubkyRecord struct {
	Version       uint8
	HomeserverKey crypto.PublicKey
	Flags         uint8
	Params        map[uint16][]byte
}

// NewPubkyRecord builds a version-1 record for the given homeserver key.
func NewPubkyRecord(homeserverKey crypto.PublicKey) *PubkyRecord {
	return &PubkyRecord{
		Version:       currentRecordVersion,
		HomeserverKey: homeserverKey,
		Params:        make(map[uint16][]byte),
	}
}

// Encode serializes the record as [version:1][homeserver_pk:32][flags:1]
// followed by sorted-by-key [paramKey:2][paramLen:2][paramValue]* entries.
// It returns a pkherr.BadPath error if the result would exceed the
// 1000-byte DHT value limit.
func (r *PubkyRecord) Encode() ([]byte, error) {
	size := 1 + crypto.PublicKeySize + flagsByteLen
	keys := make([]uint16, 0, len(r.Params))
	for k, v := range r.Params {
		keys = append(keys, k)
		size += paramKeyLen + paramLenLen + len(v)
	}
	if size > MaxRecordValueSize {
		return nil, pkherr.New(pkherr.BadPath, "pubky record exceeds DHT size limit")
	}

	sortUint16(keys)

	out := make([]byte, 0, size)
	out = append(out, r.Version)
	out = append(out, r.HomeserverKey[:]...)
	out = append(out, r.Flags)

	for _, k := range keys {
		v := r.Params[k]
		var kb, lb [2]byte
		binary.BigEndian.PutUint16(kb[:], k)
		binary.BigEndian.PutUint16(lb[:], uint16(len(v)))
		out = append(out, kb[:]...)
		out = append(out, lb[:]...)
		out = append(out, v...)
	}
	return out, nil
}

// DecodePubkyRecord parses the payload produced by Encode. It rejects
// version 0 and versions above currentRecordVersion with a pkherr.BadPath
// error; trailing unknown param entries are preserved.
func DecodePubkyRecord(b []byte) (*PubkyRecord, error) {
	if len(b) < 1+crypto.PublicKeySize+flagsByteLen {
		return nil, pkherr.New(pkherr.BadPath, "pubky record too short")
	}

	version := b[0]
	if version == 0 {
		return nil, pkherr.New(pkherr.BadPath, "pubky record version 0 is reserved/invalid")
	}
	if version > currentRecordVersion {
		return nil, pkherr.New(pkherr.BadPath, "unsupported pubky record version")
	}

	r := &PubkyRecord{Version: version, Params: make(map[uint16][]byte)}
	copy(r.HomeserverKey[:], b[1:1+crypto.PublicKeySize])
	r.Flags = b[1+crypto.PublicKeySize]

	pos := 1 + crypto.PublicKeySize + flagsByteLen
	for pos < len(b) {
		if pos+paramKeyLen+paramLenLen > len(b) {
			return nil, pkherr.New(pkherr.BadPath, "pubky record truncated param header")
		}
		key := binary.BigEndian.Uint16(b[pos : pos+paramKeyLen])
		pos += paramKeyLen
		plen := int(binary.BigEndian.Uint16(b[pos : pos+paramLenLen]))
		pos += paramLenLen
		if pos+plen > len(b) {
			return nil, pkherr.New(pkherr.BadPath, "pubky record truncated param value")
		}
		r.Params[key] = append([]byte{}, b[pos:pos+plen]...)
		pos += plen
	}
	return r, nil
}

func sortUint16(s []uint16) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
