package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"stayly/internal/app/commands"
)

// IdempotentCommand opts a command into replay protection.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	// ResultPrototype returns a pointer the stored result is decoded into.
	ResultPrototype() any
}

// Fingerprinted lets a command choose which fields identify a repeated request.
// Commands without it are fingerprinted by their encoded form.
type Fingerprinted interface {
	IdempotencyFingerprint() []byte
}

type IdempotencyRecord struct {
	Key         string
	Command     string
	Fingerprint string
	Payload     []byte
	OccurredAt  time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

var (
	ErrMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
	ErrKeyReused        = errors.New("middleware: idempotency key reused for a different request")
)

// Idempotency replays the stored result when a key is seen again. Only successful
// results are stored, so a failed attempt may be retried with the same key.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return nextFn(ctx, cmd)
			}
			key := idCmd.IdempotencyKey()
			fp, err := fingerprint(cmd, codec)
			if err != nil {
				return nil, err
			}
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				if rec.Command != "" && rec.Command != cmd.Key() {
					return nil, ErrKeyReused
				}
				if rec.Fingerprint != "" && rec.Fingerprint != fp {
					return nil, ErrKeyReused
				}
				proto := idCmd.ResultPrototype()
				if proto == nil {
					return nil, ErrMissingPrototype
				}
				if len(rec.Payload) > 0 {
					if err := codec.Decode(rec.Payload, proto); err != nil {
						return nil, err
					}
				}
				return proto, nil
			}

			result, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			record := IdempotencyRecord{Key: key, Command: cmd.Key(), Fingerprint: fp, OccurredAt: time.Now().UTC()}
			if !isNil(result) {
				payload, encErr := codec.Encode(result)
				if encErr != nil {
					return nil, encErr
				}
				record.Payload = payload
			}
			if saveErr := store.Save(ctx, record); saveErr != nil {
				return nil, errors.Join(ErrIdempotencySave, saveErr)
			}
			return result, nil
		})
	}
}

var ErrIdempotencySave = errors.New("middleware: idempotency record not saved")

func fingerprint(cmd commands.Command, codec ResultCodec) (string, error) {
	var raw []byte
	if f, ok := cmd.(Fingerprinted); ok {
		raw = f.IdempotencyFingerprint()
	} else {
		encoded, err := codec.Encode(cmd)
		if err != nil {
			return "", err
		}
		raw = encoded
	}
	sum := sha256.Sum256(append([]byte(cmd.Key()+"\n"), raw...))
	return hex.EncodeToString(sum[:]), nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
