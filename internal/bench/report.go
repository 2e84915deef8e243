package bench

import (
	"math/rand"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog/log"
)

// Report is the outcome of one workload run.
type Report struct {
	ID         snowflake.ID  `json:"id"`
	Stack      []string      `json:"stack"`
	Workers    int           `json:"workers"`
	Ops        int           `json:"ops"`
	Reads      int64         `json:"reads"`
	Writes     int64         `json:"writes"`
	Reentries  int64         `json:"reentries"`
	MaxReaders int           `json:"max_readers"`
	Violations int           `json:"violations"`
	Keys       int           `json:"keys"`
	StartedAt  time.Time     `json:"started_at"`
	Elapsed    time.Duration `json:"elapsed"`
}

var sg = newNode()

func newNode() *snowflake.Node {
	node, err := snowflake.NewNode(int64(rand.Intn(1023)))
	if err != nil {
		log.Fatal().Err(err).Str("c", "bench").Msg("failed to create snowflake node")
	}
	return node
}
