/*
 * === This file is part of AESOP-Lite Control ===
 *
 * Copyright 2019-2024 the AESOP-Lite collaboration.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package psoc

import (
	"bytes"
	"fmt"
	"io"
)

// Commands travel as fixed 9-byte ASCII records: 'S', two hex digits of
// the data byte, two hex digits of the address byte, three filler zeros,
// 'W'. The address byte packs the PSOC address in bits 5:2 and the data
// byte count split across bits 7:6 and 1:0. Every record is sent in
// triplicate; the firmware majority-votes the three copies.
//
// A command with N data bytes is one command record (count = N) followed
// by N data records whose count field carries the 1-based byte index.
const recordLen = 9

const hexDigits = "0123456789ABCDEF"

func packAddressByte(address, count int) byte {
	return byte(((count & 0x0C) << 4) | ((address & 0x0F) << 2) | (count & 0x03))
}

func encodeRecord(dataByte, addressByte byte) []byte {
	rec := make([]byte, 0, 3*recordLen)
	one := [recordLen]byte{
		'S',
		hexDigits[dataByte>>4], hexDigits[dataByte&0x0F],
		hexDigits[addressByte>>4], hexDigits[addressByte&0x0F],
		'0', '0', '0',
		'W',
	}
	for i := 0; i < 3; i++ {
		rec = append(rec, one[:]...)
	}
	return rec
}

// EncodeCommand serializes one command with its data bytes into the
// triplicated record stream written to the serial port.
func EncodeCommand(address int, cmd byte, data []byte) []byte {
	var buf bytes.Buffer
	buf.Write(encodeRecord(cmd, packAddressByte(address, len(data))))
	for i, d := range data {
		buf.Write(encodeRecord(d, packAddressByte(address, i+1)))
	}
	return buf.Bytes()
}

// Responses are 3-byte-aligned binary packets:
//
//	DC 00 FF | len | cmd | payload[len] | padding | FF 00 FF
//
// padding fills the payload to the next 3-byte boundary with zeros.
var (
	packetHeader  = []byte{0xDC, 0x00, 0xFF}
	packetTrailer = []byte{0xFF, 0x00, 0xFF}
)

// Packet is one decoded response.
type Packet struct {
	Cmd     byte
	Payload []byte
}

// EncodePacket builds a response packet. Used by loopback tests; the
// flight encoder is the PSOC firmware.
func EncodePacket(cmd byte, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write(packetHeader)
	buf.WriteByte(byte(len(payload)))
	buf.WriteByte(cmd)
	buf.Write(payload)
	for pad := (3 - (len(payload)+2)%3) % 3; pad > 0; pad-- {
		buf.WriteByte(0x00)
	}
	buf.Write(packetTrailer)
	return buf.Bytes()
}

// ReadPacket reads and validates the next response packet from r,
// skipping any leading noise before the header.
func ReadPacket(r io.Reader) (Packet, error) {
	// Hunt for the 3-byte header one byte at a time; the serial line can
	// carry leftover event data between commands.
	var window [3]byte
	if _, err := io.ReadFull(r, window[:]); err != nil {
		return Packet{}, err
	}
	for !bytes.Equal(window[:], packetHeader) {
		var next [1]byte
		if _, err := io.ReadFull(r, next[:]); err != nil {
			return Packet{}, err
		}
		window[0], window[1], window[2] = window[1], window[2], next[0]
	}

	var lenCmd [2]byte
	if _, err := io.ReadFull(r, lenCmd[:]); err != nil {
		return Packet{}, err
	}
	length := int(lenCmd[0])
	pad := (3 - (length+2)%3) % 3

	body := make([]byte, length+pad+len(packetTrailer))
	if _, err := io.ReadFull(r, body); err != nil {
		return Packet{}, err
	}
	trailer := body[length+pad:]
	if !bytes.Equal(trailer, packetTrailer) {
		return Packet{}, fmt.Errorf("bad packet trailer % x", trailer)
	}
	return Packet{Cmd: lenCmd[1], Payload: body[:length]}, nil
}
