package blob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/oxidb"
)

// OxiDB stores blobs in an oxidb-server bucket through a connection pool.
type OxiDB struct {
	pool   *oxidb.Pool
	bucket string
	signer *Signer
}

// NewOxiDB ensures the bucket exists.
func NewOxiDB(ctx context.Context, pool *oxidb.Pool, bucket string, signer *Signer) (*OxiDB, error) {
	err := pool.Do(func(c *oxidb.Client) error {
		return c.CreateBucket(ctx, bucket)
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return &OxiDB{pool: pool, bucket: bucket, signer: signer}, nil
}

func (o *OxiDB) Put(ctx context.Context, key string, data []byte, contentType string) (Object, error) {
	err := o.pool.Do(func(c *oxidb.Client) error {
		return c.PutObject(ctx, o.bucket, key, data, contentType, nil)
	})
	if err != nil {
		return Object{}, err
	}
	return Object{Key: key, URL: fmt.Sprintf("oxidb://%s/%s", o.bucket, key), Size: int64(len(data))}, nil
}

func (o *OxiDB) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := o.pool.Do(func(c *oxidb.Client) error {
		var err error
		data, _, err = c.GetObject(ctx, o.bucket, key)
		return err
	})
	var nf *oxidb.NotFoundError
	if errors.As(err, &nf) {
		return nil, ErrNotFound
	}
	return data, err
}

func (o *OxiDB) Delete(ctx context.Context, key string) error {
	err := o.pool.Do(func(c *oxidb.Client) error {
		return c.DeleteObject(ctx, o.bucket, key)
	})
	var nf *oxidb.NotFoundError
	if errors.As(err, &nf) {
		return nil
	}
	return err
}

func (o *OxiDB) URL(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	return o.signer.URL(key, filename, ttl)
}
