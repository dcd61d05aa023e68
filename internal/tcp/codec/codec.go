// Package codec encodes the coordinator worker-list request and decodes the
// worker-list response. All integers on the wire are little-endian.
package codec

import (
	"encoding/binary"
	"fmt"

	"gitlab.com/fbworkers.net/internal/domain"
	"gitlab.com/fbworkers.net/internal/static/errs"
	"gitlab.com/fbworkers.net/internal/tcp/defs"
)

// EncodeWorkerListRequest builds the 16 byte MsgRequestWorkerList:
//
//	uint32 bytesToRead (message size - 4)
//	uint8  msgType = 12, uint8 msgSize = 12, bool hasPayload = 0, pad
//	uint32 protocolVersion
//	uint8  platform, bool requestWorkerInfo = 1, 2 bytes pad
func EncodeWorkerListRequest(protocolVersion uint32, platform byte) []byte {
	msg := make([]byte, defs.RequestWorkerListSize)
	binary.LittleEndian.PutUint32(msg[0:4], defs.RequestWorkerListSize-4)
	msg[4] = defs.MsgRequestWorkerList
	msg[5] = defs.RequestWorkerListHeaderSize
	msg[6] = 0
	msg[7] = 0
	binary.LittleEndian.PutUint32(msg[8:12], protocolVersion)
	msg[12] = platform
	msg[13] = 1
	return msg
}

// WorkerListHeader is the fixed prefix of a MsgWorkerList response.
type WorkerListHeader struct {
	PayloadSize uint32
}

// ParseWorkerListHeader validates the first 12 bytes of a response:
//
//	uint32 bytesToRead = 4
//	uint8  msgType = 13, uint8 msgSize = 4, bool hasPayload = 1, pad
//	uint32 payloadSize
func ParseWorkerListHeader(buf []byte) (WorkerListHeader, error) {
	if len(buf) < defs.WorkerListHeaderSize {
		return WorkerListHeader{}, fmt.Errorf("%w: %d byte header", errs.ErrMalformedResponse, len(buf))
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != defs.WorkerListMsgSize ||
		buf[4] != defs.MsgWorkerList ||
		buf[5] != defs.WorkerListMsgSize ||
		buf[6] != 1 {
		return WorkerListHeader{}, fmt.Errorf("%w: type %d size %d payload %d", errs.ErrUnexpectedMessage, buf[4], buf[5], buf[6])
	}
	return WorkerListHeader{PayloadSize: binary.LittleEndian.Uint32(buf[8:12])}, nil
}

// WorkerList is the result of decoding a response buffer.
type WorkerList struct {
	Records []*domain.WorkerRecord
	// Truncated is set when decoding stopped because a field would have run
	// past the end of the buffer. Records holds everything decoded before that.
	Truncated bool
}

// Decoder turns a MsgWorkerList buffer into worker records.
type Decoder struct {
	Layout    RecordLayout
	LocalHost string
}

func NewDecoder(layout RecordLayout, localHost string) *Decoder {
	return &Decoder{Layout: layout, LocalHost: localHost}
}

// Decode parses a full response buffer (header included). A header that does
// not announce a worker list is an error; a short or truncated body is not.
func (d *Decoder) Decode(buf []byte) (WorkerList, error) {
	if _, err := ParseWorkerListHeader(buf); err != nil {
		return WorkerList{}, err
	}
	list := WorkerList{Records: []*domain.WorkerRecord{}}
	c := newCursor(buf, defs.WorkerListRecordStart)
	for c.remaining() > 0 {
		w, ok := d.Layout.decode(c)
		if !ok {
			list.Truncated = true
			break
		}
		w.IsLocal = d.LocalHost != "" && w.HostName == d.LocalHost
		list.Records = append(list.Records, w)
	}
	return list, nil
}

// EncodeWorkerList builds a MsgWorkerList response for records using layout.
// The four bytes ahead of the records carry the record count.
func EncodeWorkerList(layout RecordLayout, records []*domain.WorkerRecord) []byte {
	body := binary.LittleEndian.AppendUint32(nil, uint32(len(records)))
	for _, w := range records {
		body = layout.encode(body, w)
	}
	msg := make([]byte, defs.WorkerListHeaderSize, defs.WorkerListHeaderSize+len(body))
	binary.LittleEndian.PutUint32(msg[0:4], defs.WorkerListMsgSize)
	msg[4] = defs.MsgWorkerList
	msg[5] = defs.WorkerListMsgSize
	msg[6] = 1
	binary.LittleEndian.PutUint32(msg[8:12], uint32(len(body)))
	return append(msg, body...)
}
