// Command swarmtune runs the two-level hyperparameter search against
// the analytic surrogate evaluator - a smoke run of the full search
// loop without any model training.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	_ "modernc.org/sqlite"

	"github.com/swarmtune/swarmtune"
	"github.com/swarmtune/swarmtune/bench"
	"github.com/swarmtune/swarmtune/space"
	"github.com/swarmtune/swarmtune/swarm"
)

var (
	seed    = flag.Int64("seed", -1, "random seed (negative for time-based)")
	dbpath  = flag.String("db", "", "sqlite file for the run trace")
	workers = flag.Int("workers", 1, "concurrent evaluations")
	keep    = flag.Int("keep", 5, "number of best candidates to keep")
)

func main() {
	log.SetFlags(0)
	flag.Parse()

	s := *seed
	if s < 0 {
		s = time.Now().UnixNano()
	}
	swarmtune.Rand = rand.New(rand.NewSource(s))

	var db *sql.DB
	if *dbpath != "" {
		var err error
		db, err = sql.Open("sqlite", *dbpath)
		if err != nil {
			log.Fatalf("open %v: %v", *dbpath, err)
		}
		defer db.Close()
	}

	archive := swarmtune.NewArchive(*keep)
	var ev swarmtune.Evaler = swarmtune.SerialEvaler{}
	if *workers > 1 {
		ev = swarmtune.PoolEvaler{Workers: *workers}
	}
	ev = swarmtune.RecordEvaler{Ev: swarmtune.NewCacheEvaler(ev), Archive: archive}

	opts := []swarm.Option{swarm.Eval(ev)}
	if db != nil {
		opts = append(opts, swarm.DB(db))
	}

	o, err := swarm.New(bench.Default(), space.Default(), opts...)
	if err != nil {
		log.Fatal(err)
	}

	start := time.Now()
	res, err := o.Run(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("best fitness %.4f after %v evaluations (%v generations) in %v\n",
		res.Fitness, humanize.Comma(int64(o.Neval())), o.Niter(), time.Since(start))
	fmt.Printf("  architecture: %+v\n", res.Arch)
	fmt.Printf("  layer params: %+v\n", res.Params)
	fmt.Println("best candidates:")
	for _, c := range archive.Top(*keep) {
		fmt.Printf("  %.4f %+v %+v\n", c.Fitness, c.Arch, c.Params)
	}
}
