package swarm

import (
	"github.com/pkg/errors"
)

const (
	// TblMacro holds every level-1 particle's position and fitness for
	// each outer generation.
	TblMacro = "mpsomacro"
	// TblMacroBest holds each level-1 particle's personal best for
	// each outer generation.
	TblMacroBest = "mpsomacrobest"
	// TblBest holds the run-wide best combination for each outer
	// generation.
	TblBest = "mpsobest"
)

func (o *Optimizer) initdb() error {
	if o.db == nil {
		return nil
	}

	stmts := []string{
		"CREATE TABLE IF NOT EXISTS " + TblMacro +
			" (run TEXT, iter INTEGER, particle INTEGER, fit REAL, conv INTEGER, pool INTEGER, fc INTEGER);",
		"CREATE TABLE IF NOT EXISTS " + TblMacroBest +
			" (run TEXT, iter INTEGER, particle INTEGER, fit REAL, conv INTEGER, pool INTEGER, fc INTEGER);",
		"CREATE TABLE IF NOT EXISTS " + TblBest +
			" (run TEXT, iter INTEGER, fit REAL, conv INTEGER, pool INTEGER, fc INTEGER," +
			" filters INTEGER, fsize INTEGER, cpad INTEGER, cstride INTEGER," +
			" psize INTEGER, pstride INTEGER, ppad INTEGER, units INTEGER);",
	}
	for _, s := range stmts {
		if _, err := o.db.Exec(s); err != nil {
			return errors.Wrap(err, "swarm: init progress tables")
		}
	}
	return nil
}

// logGeneration appends one row per level-1 particle plus the run best
// to the progress tables; a no-op without a database.
func (o *Optimizer) logGeneration() error {
	if o.db == nil {
		return nil
	}

	tx, err := o.db.Begin()
	if err != nil {
		return errors.Wrap(err, "swarm: begin progress transaction")
	}
	defer tx.Rollback()

	for _, mp := range o.Pop {
		_, err = tx.Exec(
			"INSERT INTO "+TblMacro+" (run,iter,particle,fit,conv,pool,fc) VALUES (?,?,?,?,?,?,?);",
			o.runid, o.t, mp.Id, mp.Fit, mp.Pos[0], mp.Pos[1], mp.Pos[2])
		if err != nil {
			return errors.Wrap(err, "swarm: log particle")
		}

		_, err = tx.Exec(
			"INSERT INTO "+TblMacroBest+" (run,iter,particle,fit,conv,pool,fc) VALUES (?,?,?,?,?,?,?);",
			o.runid, o.t, mp.Id, mp.BestFit, mp.Best[0], mp.Best[1], mp.Best[2])
		if err != nil {
			return errors.Wrap(err, "swarm: log particle best")
		}
	}

	if o.bestArch != nil {
		args := []interface{}{o.runid, o.t, o.bestFit}
		for _, v := range o.bestArch {
			args = append(args, v)
		}
		for _, v := range o.bestParams {
			args = append(args, v)
		}
		_, err = tx.Exec(
			"INSERT INTO "+TblBest+
				" (run,iter,fit,conv,pool,fc,filters,fsize,cpad,cstride,psize,pstride,ppad,units)"+
				" VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?);", args...)
		if err != nil {
			return errors.Wrap(err, "swarm: log run best")
		}
	}

	return errors.Wrap(tx.Commit(), "swarm: commit progress transaction")
}
