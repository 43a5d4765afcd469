package inmemdb

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

// matches applies the scope and filter predicate of q to rec, through its student's class.
func (repo *attendanceRepository) matches(rec *attendance.Record, q attendance.Query) bool {
	std, ok := repo.db.students[rec.StudentID]
	if !ok || !q.Scope.Allows(std.ClassID) {
		return false
	}
	f := q.Filter
	switch {
	case f.Date != "" && rec.Date != f.Date,
		f.ClassID != 0 && std.ClassID != f.ClassID,
		f.Status != "" && rec.Status != f.Status,
		f.DateFrom != "" && rec.Date < f.DateFrom,
		f.DateTo != "" && rec.Date > f.DateTo,
		f.StudentID != 0 && rec.StudentID != f.StudentID:
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if rec.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

func (repo *attendanceRepository) detail(rec *attendance.Record) attendance.RecordDetail {
	d := attendance.RecordDetail{Record: *rec}
	if std, ok := repo.db.students[rec.StudentID]; ok {
		d.StudentName = std.Name
		d.StudentCode = std.StudentCode
		d.ClassID = std.ClassID
		if cls, ok := repo.db.classes[std.ClassID]; ok {
			d.ClassName = cls.Name
		}
	}
	if usr, ok := repo.db.users[rec.MarkedBy]; ok {
		d.MarkedByName = usr.Name
	}
	return d
}

func (repo *attendanceRepository) QueryRecords(_ context.Context, q attendance.Query, pr core.PageRequest) ([]attendance.RecordDetail, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]attendance.RecordDetail, 0)
	for _, rec := range repo.db.records {
		if repo.matches(rec, q) {
			records = append(records, repo.detail(rec))
		}
	}
	// date DESC, id DESC
	sortBy(records, func(a, b attendance.RecordDetail) bool {
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		return a.ID > b.ID
	})
	return paginate(records, pr), len(records), nil
}

func (repo *attendanceRepository) SummarizeRecords(_ context.Context, q attendance.Query) (map[attendance.Status]int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	counts := make(map[attendance.Status]int)
	for _, rec := range repo.db.records {
		if repo.matches(rec, q) {
			counts[rec.Status]++
		}
	}
	return counts, nil
}

func (repo *attendanceRepository) CountRecords(_ context.Context, q attendance.Query) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, rec := range repo.db.records {
		if repo.matches(rec, q) {
			n++
		}
	}
	return n, nil
}

func (repo *attendanceRepository) QueryStudentClassIDs(_ context.Context, studentIDs []int64) (map[int64]int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classIDs := make(map[int64]int64, len(studentIDs))
	for _, id := range studentIDs {
		if std, ok := repo.db.students[id]; ok {
			classIDs[id] = std.ClassID
		}
	}
	return classIDs, nil
}

func (repo *attendanceRepository) UpsertRecords(_ context.Context, date string, entries []attendance.Entry, markedBy int64) (attendance.MarkResult, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// all or nothing
	for _, e := range entries {
		if _, ok := repo.db.students[e.StudentID]; !ok {
			return attendance.MarkResult{}, attendance.ErrStudentNotFound
		}
	}

	existing := make(map[int64]*attendance.Record)
	for _, rec := range repo.db.records {
		if rec.Date == date {
			existing[rec.StudentID] = rec
		}
	}

	now := time.Now().UTC()
	res := attendance.MarkResult{Date: date}
	for _, e := range entries {
		notes := null.NewString(e.Notes, e.Notes != "")
		if rec, ok := existing[e.StudentID]; ok {
			rec.Status = e.Status
			rec.Notes = notes
			rec.MarkedBy = markedBy
			rec.UpdatedAt = now
			res.Updated++
			continue
		}
		rec := &attendance.Record{
			ID:        repo.db.nextID(),
			StudentID: e.StudentID,
			Date:      date,
			Status:    e.Status,
			Notes:     notes,
			MarkedBy:  markedBy,
			CreatedAt: now,
			UpdatedAt: now,
		}
		repo.db.records[rec.ID] = rec
		existing[e.StudentID] = rec
		res.Created++
	}
	return res, nil
}
