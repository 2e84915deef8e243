package boltdb

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"

	"github.com/forscht/relock/internal/bench"
	dp "github.com/forscht/relock/internal/dataprovider"
)

var reportsBucket = []byte("reports")

type Provider struct {
	db *bbolt.DB
}

type Config struct {
	DbPath string `mapstructure:"db_path"`
}

func New(cfg *Config) dp.DataProvider {
	db, err := bbolt.Open(cfg.DbPath, 0666, nil)
	if err != nil {
		log.Fatal().Str("c", "boltdb").Err(err).Msg("failed to open db")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(reportsBucket)
		return err
	})
	if err != nil {
		log.Fatal().Str("c", "boltdb").Err(err).Msg("failed to init db")
	}
	log.Info().Str("c", "boltdb").Str("path", cfg.DbPath).Msg("initialized boltdb as dataprovider")

	return &Provider{db}
}

func (bfp *Provider) Name() string {
	return "boltdb"
}

func (bfp *Provider) Save(report *bench.Report) error {
	data, err := serializeReport(report)
	if err != nil {
		return err
	}
	return bfp.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(reportsBucket)
		key := itob(report.ID)
		if b.Get(key) != nil {
			return dp.ErrExist
		}
		return b.Put(key, data)
	})
}

func (bfp *Provider) Get(id snowflake.ID) (*bench.Report, error) {
	var report *bench.Report
	err := bfp.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(reportsBucket).Get(itob(id))
		if data == nil {
			return dp.ErrNotExist
		}
		var err error
		report, err = deserializeReport(data)
		return err
	})
	return report, err
}

// List returns reports newest first. A limit of zero returns every report past offset.
func (bfp *Provider) List(limit, offset int) ([]*bench.Report, error) {
	reports := make([]*bench.Report, 0)
	err := bfp.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(reportsBucket).Cursor()
		var skipped int
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(reports) >= limit {
				break
			}
			if skipped < offset {
				skipped++
				continue
			}
			report, err := deserializeReport(v)
			if err != nil {
				return err
			}
			reports = append(reports, report)
		}
		return nil
	})
	return reports, err
}

func (bfp *Provider) Delete(id snowflake.ID) error {
	return bfp.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(reportsBucket)
		key := itob(id)
		if b.Get(key) == nil {
			return dp.ErrNotExist
		}
		return b.Delete(key)
	})
}

func (bfp *Provider) Close() error {
	return bfp.db.Close()
}

// itob encodes id big-endian so the key order follows generation time.
func itob(id snowflake.ID) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func serializeReport(report *bench.Report) ([]byte, error) {
	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(report); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func deserializeReport(data []byte) (*bench.Report, error) {
	report := new(bench.Report)
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(report); err != nil {
		return nil, err
	}
	return report, nil
}
