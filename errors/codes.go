package errors

type Code string

const (
	ErrAborted           Code = "aborted"
	ErrBadRequest        Code = "bad-request"
	ErrCommunication     Code = "communication"
	ErrProtocolViolation Code = "protocol-violation"
	ErrFatal             Code = "fatal"
	ErrNotFound          Code = "not-found"
	ErrInternal          Code = "internal"
	ErrUnexpected        Code = "unexpected"
)

type Kind string

const (
	// KindContextAborted is used when we were currently performing an operation but
	// the context got aborted.
	KindContextAborted Kind = "context-aborted"
	// KindDB is used for general database problems like failed connecting.
	KindDB Kind = "db"
	// KindDBRollback is used when rolling back a transaction failed.
	KindDBRollback Kind = "db-rollback"
	// KindDecodeJSON is used when JSON content could not be parsed.
	KindDecodeJSON Kind = "decode-json"
	// KindDeviceAlreadyRegistered is used when a device registers with a unique id
	// that currently belongs to an active device.
	KindDeviceAlreadyRegistered Kind = "device-already-registered"
	// KindDeviceNotFound is used when a device is unregistered or requested that is
	// unknown or currently inactive.
	KindDeviceNotFound Kind = "device-not-found"
	// KindEncodeJSON is used when content could not be marshalled to JSON.
	KindEncodeJSON Kind = "encode-json"
	// KindInvalidConfig is used when an app config does not validate.
	KindInvalidConfig Kind = "invalid-config"
	// KindMalformedPatching is used when a persisted port patching holds a value
	// that does not parse as a universe id.
	KindMalformedPatching Kind = "malformed-patching"
	// KindMissingUniqueID is used when a device without a unique id is passed to
	// the device registry.
	KindMissingUniqueID Kind = "missing-unique-id"
	// KindResourceNotFound is used for missing general resources.
	KindResourceNotFound Kind = "resource-not-found"
	// KindShouldNotHappen is used for situations the code rules out itself.
	KindShouldNotHappen Kind = "should-not-happen"
	// KindUnknown is used for different unknown type values that are too special
	// for creating separate error kinds.
	KindUnknown Kind = "unknown"
)
