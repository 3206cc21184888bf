package abi

import "errors"

// ErrInvalidArgument covers malformed offsets, sizes, and nil or
// non-positive InitRuntime arguments passed across the ABI boundary — the façade's own validation layer, distinct from
// runtime.ErrNullArgument/ErrConfiguration which guard Launch itself.
var ErrInvalidArgument = errors.New("abi: invalid argument")

// ErrOutOfMemory is returned when DeviceMalloc cannot satisfy a request
// against the current device's arena.
var ErrOutOfMemory = errors.New("abi: device out of memory")

// ErrNoActiveDevice is returned by any call made before SetDevice has
// selected one.
var ErrNoActiveDevice = errors.New("abi: no active device")

// ErrUnknownKernel is returned by RegisterKernel when name does not match a
// builtin the simulation backend knows how to bind.
var ErrUnknownKernel = errors.New("abi: unknown kernel name")
