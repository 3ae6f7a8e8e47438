package pwreset

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pwreset/pwreset/credential"
	"github.com/redis/go-redis/v9"
)

const tokenRecordVersionV1 = 1

// tokenRecord is the persisted state of one outstanding reset token. Only
// the SHA-256 of the token is stored; the plaintext exists solely in the
// ResetReference returned to the caller.
type tokenRecord struct {
	CreatedAt int64
	ExpiresAt int64
	Attempts  uint16
	TokenHash [32]byte
}

type tokenStore struct {
	redis       *redis.Client
	prefix      string
	ttl         time.Duration
	maxAttempts int
}

func newTokenStore(redisClient *redis.Client, cfg TokenConfig) *tokenStore {
	return &tokenStore{
		redis:       redisClient,
		prefix:      cfg.RedisPrefix,
		ttl:         cfg.TTL,
		maxAttempts: cfg.MaxAttempts,
	}
}

func (s *tokenStore) key(accountName string) string {
	return s.prefix + ":" + strings.ToLower(accountName)
}

// Issue generates a fresh token for the account and persists its record,
// overwriting any prior record. The old token, if any, becomes unredeemable
// the moment the SET lands.
func (s *tokenStore) Issue(ctx context.Context, accountName string) (string, error) {
	token, err := credential.Token()
	if err != nil {
		return "", err
	}

	now := time.Now()
	record := &tokenRecord{
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
		TokenHash: sha256.Sum256([]byte(token)),
	}

	encoded, err := encodeTokenRecord(record)
	if err != nil {
		return "", err
	}

	if err := s.redis.Set(ctx, s.key(accountName), encoded, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return token, nil
}

// Redeem validates the presented token against the live record and, on
// match, deletes the record inside a WATCH transaction before returning it.
// Deletion is the commit point: once Redeem returns nil error, every other
// Redeem for the account observes ErrNoOutstandingToken. A mismatched
// presentation bumps the attempt counter and deletes the record once
// maxAttempts is reached.
func (s *tokenStore) Redeem(ctx context.Context, accountName, presented string) (*tokenRecord, error) {
	const maxRetries = 4
	key := s.key(accountName)
	presentedHash := sha256.Sum256([]byte(presented))

	for i := 0; i < maxRetries; i++ {
		var redeemed *tokenRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeTokenRecord(data)
			if err != nil {
				return err
			}

			if time.Now().Unix() > record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrNoOutstandingToken
			}

			if subtle.ConstantTimeCompare(record.TokenHash[:], presentedHash[:]) != 1 {
				record.Attempts++
				if int(record.Attempts) >= s.maxAttempts {
					_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
						pipe.Del(ctx, key)
						return nil
					})
					if err != nil {
						return err
					}
					return ErrTokenMismatch
				}

				ttl := time.Until(time.Unix(record.ExpiresAt, 0))
				if ttl <= 0 {
					_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
						pipe.Del(ctx, key)
						return nil
					})
					if err != nil {
						return err
					}
					return ErrNoOutstandingToken
				}

				updated, err := encodeTokenRecord(record)
				if err != nil {
					return err
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, ttl)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrTokenMismatch
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}

			redeemed = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, ErrNoOutstandingToken
			case errors.Is(err, ErrNoOutstandingToken), errors.Is(err, ErrTokenMismatch):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}

		return redeemed, nil
	}

	return nil, ErrNoOutstandingToken
}

// Reinstate puts a consumed record back with its remaining lifetime, so a
// redemption whose directory apply failed can be retried with the same
// token. SETNX: if a newer token was issued meanwhile, the newer one wins.
func (s *tokenStore) Reinstate(ctx context.Context, accountName string, record *tokenRecord) error {
	ttl := time.Until(time.Unix(record.ExpiresAt, 0))
	if ttl <= 0 {
		return nil
	}

	encoded, err := encodeTokenRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.SetNX(ctx, s.key(accountName), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func encodeTokenRecord(record *tokenRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(tokenRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	buf.Write(record.TokenHash[:])

	return buf.Bytes(), nil
}

func decodeTokenRecord(data []byte) (*tokenRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != tokenRecordVersionV1 {
		return nil, errors.New("invalid token record version")
	}

	record := &tokenRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.TokenHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
