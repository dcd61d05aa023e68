package errs

import "errors"

var (
	ErrUnexpectedMessage  = errors.New("unexpected coordinator message")
	ErrMalformedResponse  = errors.New("malformed worker list response")
	ErrResponseTooLarge   = errors.New("worker list response too large")
	ErrUnsupportedLayout  = errors.New("unsupported worker record layout")
	ErrNoDiscoverySource  = errors.New("no discovery source configured")
	ErrBrokerageNotFound  = errors.New("brokerage directory not found")
	ErrCoordinatorTimeout = errors.New("coordinator did not answer in time")
)

var (
	ErrMalformedDescriptor  = errors.New("malformed worker descriptor")
	ErrUnknownDescriptorKey = errors.New("unknown worker descriptor key")
)

var (
	ErrBadSettingsMagic           = errors.New("bad settings file magic")
	ErrUnsupportedSettingsVersion = errors.New("unsupported settings file version")
	ErrSettingsTruncated          = errors.New("settings file truncated")
	ErrSettingsNotFound           = errors.New("settings file not found")
	ErrSettingsBusy               = errors.New("settings file access in progress")
	ErrInvalidSettings            = errors.New("invalid worker settings")
)
