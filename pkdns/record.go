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

// Package pkdns implements the identity-and-discovery plane: the
// BEP-44/_pubky wire codecs, the resolver/publisher/republisher actors,
// and the minimal DHT and relay transport interfaces they consume.
package pkdns

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/pkherr"
)

// bep44DomainTag is the domain separator BEP-44 mutable items sign under.
const bep44DomainTag = "BEP44:MUTABLE"

// MaxRecordValueSize is the DHT mutable-item value size limit.
const MaxRecordValueSize = 1000

// SignedRecord is a BEP-44 DHT mutable item: (public_key, seq, value,
// signature). Its signature verifies seq‖value under public_key with
// the mutable-item domain separator.
type SignedRecord struct {
	PublicKey crypto.PublicKey
	Seq       uint64
	Value     []byte
	Sig       [crypto.SignatureSize]byte
}

// signedBytes returns the exact bytes signed: the domain tag followed by
// the bencoded (seq, v) pair, matching BEP-44's "seq<seq>v<value>" form.
func signedBytes(seq uint64, value []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(bep44DomainTag)
	buf.WriteString("3:seqi")
	buf.WriteString(strconv.FormatUint(seq, 10))
	buf.WriteString("e1:v")
	buf.WriteString(strconv.Itoa(len(value)))
	buf.WriteByte(':')
	buf.Write(value)
	return buf.Bytes()
}

// Sign produces a SignedRecord for value at seq, signed by kp.
func Sign(kp crypto.Keypair, seq uint64, value []byte) (SignedRecord, error) {
	if len(value) > MaxRecordValueSize {
		return SignedRecord{}, pkherr.New(pkherr.BadPath, "record value exceeds DHT size limit")
	}
	return SignedRecord{
		PublicKey: kp.Public(),
		Seq:       seq,
		Value:     value,
		Sig:       crypto.SignWithTag(kp, bep44DomainTag, signedBytes(seq, value)[len(bep44DomainTag):]),
	}, nil
}

// Verify checks the record's signature under its own PublicKey.
func (r SignedRecord) Verify() bool {
	return crypto.VerifyWithTag(r.PublicKey, bep44DomainTag, signedBytes(r.Seq, r.Value)[len(bep44DomainTag):], r.Sig)
}

// Encode serializes the record as a bencoded dict with keys k, seq, sig,
// v, matching the wire shape of a BEP-44 get_mutable response.
func (r SignedRecord) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteByte('d')
	bencodeBytesField(&buf, "k", r.PublicKey[:])
	bencodeIntField(&buf, "seq", int64(r.Seq))
	bencodeBytesField(&buf, "sig", r.Sig[:])
	bencodeBytesField(&buf, "v", r.Value)
	buf.WriteByte('e')
	return buf.Bytes()
}

// DecodeSignedRecord parses the bencoded dict produced by Encode.
func DecodeSignedRecord(b []byte) (SignedRecord, error) {
	fields, err := decodeBencodeDict(b)
	if err != nil {
		return SignedRecord{}, pkherr.Wrap(pkherr.BadPath, "malformed signed record", err)
	}

	var r SignedRecord
	k, ok := fields["k"]
	if !ok || len(k) != crypto.PublicKeySize {
		return SignedRecord{}, pkherr.New(pkherr.BadPublicKey, "signed record missing or malformed public key")
	}
	copy(r.PublicKey[:], k)

	seqRaw, ok := fields["seq"]
	if !ok {
		return SignedRecord{}, pkherr.New(pkherr.BadPath, "signed record missing seq")
	}
	seq, err := strconv.ParseUint(string(seqRaw), 10, 64)
	if err != nil {
		return SignedRecord{}, pkherr.Wrap(pkherr.BadPath, "signed record seq not an integer", err)
	}
	r.Seq = seq

	sig, ok := fields["sig"]
	if !ok || len(sig) != crypto.SignatureSize {
		return SignedRecord{}, pkherr.New(pkherr.InvalidSignature, "signed record missing or malformed signature")
	}
	copy(r.Sig[:], sig)

	r.Value = fields["v"]
	return r, nil
}

func bencodeBytesField(buf *bytes.Buffer, key string, val []byte) {
	fmt.Fprintf(buf, "%d:%s%d:", len(key), key, len(val))
	buf.Write(val)
}

func bencodeIntField(buf *bytes.Buffer, key string, val int64) {
	fmt.Fprintf(buf, "%d:%si%de", len(key), key, val)
}

// decodeBencodeDict decodes a flat bencoded dict of string/bytes or
// string/int fields, which is all BEP-44 payloads ever need.
func decodeBencodeDict(b []byte) (map[string][]byte, error) {
	if len(b) == 0 || b[0] != 'd' {
		return nil, fmt.Errorf("pkdns: not a bencoded dict")
	}
	pos := 1
	out := make(map[string][]byte)
	for pos < len(b) && b[pos] != 'e' {
		key, next, err := decodeBencodeString(b, pos)
		if err != nil {
			return nil, err
		}
		pos = next

		if pos >= len(b) {
			return nil, fmt.Errorf("pkdns: truncated bencoded dict")
		}
		if b[pos] == 'i' {
			end := bytes.IndexByte(b[pos:], 'e')
			if end < 0 {
				return nil, fmt.Errorf("pkdns: unterminated bencoded int")
			}
			out[string(key)] = b[pos+1 : pos+end]
			pos = pos + end + 1
		} else {
			val, next, err := decodeBencodeString(b, pos)
			if err != nil {
				return nil, err
			}
			out[string(key)] = val
			pos = next
		}
	}
	return out, nil
}

func decodeBencodeString(b []byte, pos int) (value []byte, next int, err error) {
	colon := bytes.IndexByte(b[pos:], ':')
	if colon < 0 {
		return nil, 0, fmt.Errorf("pkdns: malformed bencoded string length")
	}
	n, err := strconv.Atoi(string(b[pos : pos+colon]))
	if err != nil || n < 0 {
		return nil, 0, fmt.Errorf("pkdns: malformed bencoded string length")
	}
	start := pos + colon + 1
	end := start + n
	if end > len(b) {
		return nil, 0, fmt.Errorf("pkdns: truncated bencoded string")
	}
	return b[start:end], end, nil
}
