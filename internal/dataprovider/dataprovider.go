package dataprovider

import (
	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog/log"

	"github.com/forscht/relock/internal/bench"
	"github.com/forscht/relock/pkg/locker"
)

var (
	provider DataProvider
	// locks serializes writers of one report against its readers.
	locks = locker.NewKeyed[snowflake.ID](locker.RWMutexes(locker.Mutexes), nil)
)

// DataProvider stores bench reports.
type DataProvider interface {
	Name() string
	Save(report *bench.Report) error
	Get(id snowflake.ID) (*bench.Report, error)
	List(limit, offset int) ([]*bench.Report, error)
	Delete(id snowflake.ID) error
	Close() error
}

func Load(dp DataProvider) {
	provider = dp
}

func Name() string {
	return provider.Name()
}

func Save(report *bench.Report) error {
	log.Debug().Str("c", "dataprovider").Str("id", report.ID.String()).Msg("SAVE")
	return locks.WithLock(report.ID, locker.As(locker.Write, locker.NoArgs{}), func() error {
		return provider.Save(report)
	})
}

func Get(id snowflake.ID) (*bench.Report, error) {
	log.Debug().Str("c", "dataprovider").Str("id", id.String()).Msg("GET")
	var report *bench.Report
	err := locks.WithLock(id, locker.As(locker.Read, locker.NoArgs{}), func() (err error) {
		report, err = provider.Get(id)
		return err
	})
	return report, err
}

func List(limit, offset int) ([]*bench.Report, error) {
	log.Debug().Str("c", "dataprovider").Int("limit", limit).Int("off", offset).Msg("LIST")
	return provider.List(limit, offset)
}

func Delete(id snowflake.ID) error {
	log.Debug().Str("c", "dataprovider").Str("id", id.String()).Msg("DELETE")
	return locks.WithLock(id, locker.As(locker.Write, locker.NoArgs{}), func() error {
		return provider.Delete(id)
	})
}

func Close() error {
	return provider.Close()
}
