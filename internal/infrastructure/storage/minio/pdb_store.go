package minio

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/pkg/errors"
)

const (
	pdbPrefix      = "pdb/"
	pdbContentType = "chemical/x-pdb"
)

// PDBStore keeps one object per PDB code under pdb/<CODE>.pdb.
type PDBStore struct {
	client *Client
	logger logging.Logger
}

func NewPDBStore(client *Client, log logging.Logger) *PDBStore {
	return &PDBStore{client: client, logger: log.Named("pdbstore")}
}

// ObjectKey returns the object name of a PDB code.
func ObjectKey(pdbCode string) string {
	return pdbPrefix + strings.ToUpper(strings.TrimSpace(pdbCode)) + ".pdb"
}

// Get returns the stored file. ok is false when no file is stored.
func (s *PDBStore) Get(ctx context.Context, pdbCode string) ([]byte, bool, error) {
	if strings.TrimSpace(pdbCode) == "" {
		return nil, false, errors.New(errors.ErrCodeValidation, "pdb code required")
	}
	key := ObjectKey(pdbCode)
	obj, err := s.client.api.GetObject(ctx, s.client.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, errors.ErrCodeStorageError, "download failed").WithDetail(key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, errors.ErrCodeStorageError, "read failed").WithDetail(key)
	}
	s.logger.Debug("PDB file loaded", logging.String("key", key), logging.Int("bytes", len(data)))
	return data, true, nil
}

// Put stores data for pdbCode, replacing any previous file.
func (s *PDBStore) Put(ctx context.Context, pdbCode string, data []byte) error {
	if strings.TrimSpace(pdbCode) == "" || len(data) == 0 {
		return errors.New(errors.ErrCodeValidation, "pdb code and data required")
	}
	key := ObjectKey(pdbCode)
	_, err := s.client.api.PutObject(ctx, s.client.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  pdbContentType,
			UserMetadata: map[string]string{"pdb-code": strings.ToUpper(strings.TrimSpace(pdbCode))},
		})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "upload failed").WithDetail(key)
	}
	s.logger.Debug("PDB file stored", logging.String("key", key), logging.Int("bytes", len(data)))
	return nil
}

func (s *PDBStore) Exists(ctx context.Context, pdbCode string) (bool, error) {
	_, err := s.client.api.StatObject(ctx, s.client.bucket, ObjectKey(pdbCode), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeStorageError, "stat failed").WithDetail(ObjectKey(pdbCode))
	}
	return true, nil
}

func (s *PDBStore) Delete(ctx context.Context, pdbCode string) error {
	if err := s.client.api.RemoveObject(ctx, s.client.bucket, ObjectKey(pdbCode), minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "delete failed").WithDetail(ObjectKey(pdbCode))
	}
	return nil
}
