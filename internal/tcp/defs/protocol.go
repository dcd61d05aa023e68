package defs

import "time"

// Protocol constants
const (
	BasePort             = 31264
	WorkerListPortOffset = 128
	CoordinatorPort      = BasePort + WorkerListPortOffset

	ProtocolVersion uint32 = 22
	PlatformWindows byte   = 0

	// Message types
	MsgRequestWorkerList byte = 12
	MsgWorkerList        byte = 13

	// MsgRequestWorkerList is sent as a 4 byte length followed by a 12 byte message.
	RequestWorkerListSize       = 16
	RequestWorkerListHeaderSize = 12

	// MsgWorkerList carries a 4 byte message body followed by the payload size.
	WorkerListMsgSize     = 4
	WorkerListHeaderSize  = 12
	WorkerListRecordStart = 16

	MaxWorkerListPayload = 1 << 20

	// Configuration constants
	DefaultDialTimeout = 3 * time.Second
	DefaultReadTimeout = 3 * time.Second
)
