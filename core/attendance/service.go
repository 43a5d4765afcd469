package attendance

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/access"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/user"
)

// ErrStudentNotFound is returned by writes referencing a student that does not exist.
var ErrStudentNotFound = errors.New("student not found")

type (
	Repository interface {
		// QueryRecords returns a page of the records matching q, newest date first, and the total count.
		QueryRecords(ctx context.Context, q Query, pr core.PageRequest) ([]RecordDetail, int, error)
		// SummarizeRecords counts the records matching q per status. Zero counts are omitted.
		SummarizeRecords(ctx context.Context, q Query) (map[Status]int, error)
		CountRecords(ctx context.Context, q Query) (int, error)
		// QueryStudentClassIDs maps each existing student of studentIDs to its class.
		QueryStudentClassIDs(ctx context.Context, studentIDs []int64) (map[int64]int64, error)
		// UpsertRecords writes every entry for date in one transaction,
		// replacing the status, notes and marker of existing (student, date) records.
		UpsertRecords(ctx context.Context, date string, entries []Entry, markedBy int64) (MarkResult, error)
	}

	Service struct {
		repo     Repository
		classes  *class.Service
		validate *validator.Validate
	}
)

func NewService(repo Repository, classes *class.Service, validate *validator.Validate) *Service {
	return &Service{repo: repo, classes: classes, validate: validate}
}

func (svc *Service) query(actor *user.Actor, filter Filter) (Query, error) {
	scope, err := access.ScopeFor(actor)
	if err != nil {
		return Query{}, err
	}
	filter.Clean()
	if err = svc.validate.Struct(filter); err != nil {
		return Query{}, err
	}
	return Query{Scope: scope, Filter: filter}, nil
}

// List returns the records visible to actor matching filter.
func (svc *Service) List(ctx context.Context, actor *user.Actor, filter Filter) (Listing, error) {
	q, err := svc.query(actor, filter)
	if err != nil {
		return Listing{}, err
	}
	page, err := svc.QueryPage(ctx, q, core.NewPageRequest(q.Filter.Page, core.PerPageAttendance))
	if err != nil {
		return Listing{}, err
	}
	classes, err := svc.classes.OptionsIn(ctx, q.Scope)
	if err != nil {
		return Listing{}, err
	}
	q.Filter.Page = page.CurrentPage
	return Listing{
		Records:  page,
		Classes:  classes,
		Filters:  q.Filter,
		Statuses: StatusOptions(),
	}, nil
}

// QueryPage returns a page of the records matching q.
func (svc *Service) QueryPage(ctx context.Context, q Query, pr core.PageRequest) (core.Page[RecordDetail], error) {
	if q.Scope.IsEmpty() {
		return core.NewPage[RecordDetail](nil, pr, 0), nil
	}
	records, total, err := svc.repo.QueryRecords(ctx, q, pr)
	if err != nil {
		return core.Page[RecordDetail]{}, errors.Wrap(err, "querying records")
	}
	return core.NewPage(records, pr, total), nil
}

// Summary counts the records visible to actor matching filter, per status.
func (svc *Service) Summary(ctx context.Context, actor *user.Actor, filter Filter) (map[Status]int, error) {
	q, err := svc.query(actor, filter)
	if err != nil {
		return nil, err
	}
	return svc.SummaryOf(ctx, q)
}

func (svc *Service) SummaryOf(ctx context.Context, q Query) (map[Status]int, error) {
	if q.Scope.IsEmpty() {
		return map[Status]int{}, nil
	}
	counts, err := svc.repo.SummarizeRecords(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "summarizing records")
	}
	for status, n := range counts {
		if n == 0 {
			delete(counts, status)
		}
	}
	return counts, nil
}

func (svc *Service) Count(ctx context.Context, q Query) (int, error) {
	if q.Scope.IsEmpty() {
		return 0, nil
	}
	n, err := svc.repo.CountRecords(ctx, q)
	return n, errors.Wrap(err, "counting records")
}

// Sheet returns what actor needs to mark the class on a date (today by default).
func (svc *Service) Sheet(ctx context.Context, actor *user.Actor, req SheetRequest) (Sheet, error) {
	scope, err := access.ScopeFor(actor)
	if err != nil {
		return Sheet{}, err
	}
	req.Date = core.CleanString(req.Date)
	if err = svc.validate.Struct(req); err != nil {
		return Sheet{}, err
	}
	if req.Date == "" {
		req.Date = NowFunc().Format(core.DateLayout)
	}

	sheet := Sheet{
		Date:     req.Date,
		Records:  map[int64]RecordDetail{},
		Statuses: StatusOptions(),
	}
	if sheet.Classes, err = svc.classes.OptionsIn(ctx, scope); err != nil {
		return Sheet{}, err
	}
	if sheet.Students, err = svc.classes.StudentsIn(ctx, scope, req.ClassID); err != nil {
		return Sheet{}, err
	}
	if len(sheet.Students) == 0 {
		return sheet, nil
	}
	sheet.SelectedClassID = req.ClassID

	q := Query{Scope: scope, Filter: Filter{Date: req.Date, ClassID: req.ClassID}}
	records, _, err := svc.repo.QueryRecords(ctx, q, core.NewPageRequest(1, len(sheet.Students)))
	if err != nil {
		return Sheet{}, errors.Wrap(err, "querying records")
	}
	for _, rec := range records {
		sheet.Records[rec.StudentID] = rec
	}
	return sheet, nil
}

// Mark records a batch of attendance entries for one date.
// The whole batch is authorized and validated before anything is written;
// nothing is written if any entry fails.
func (svc *Service) Mark(ctx context.Context, actor *user.Actor, mr MarkRequest) (MarkResult, error) {
	if actor == nil {
		return MarkResult{}, core.ErrUnauthenticated
	}
	mr.Clean()

	studentIDs := make([]int64, 0, len(mr.Attendance))
	for _, e := range mr.Attendance {
		studentIDs = append(studentIDs, e.StudentID)
	}
	studentIDs = core.UniqueIDs(studentIDs)

	var studentClasses map[int64]int64
	if len(studentIDs) > 0 {
		var err error
		if studentClasses, err = svc.repo.QueryStudentClassIDs(ctx, studentIDs); err != nil {
			return MarkResult{}, errors.Wrap(err, "querying student classes")
		}
	}

	// authorize over every class touched
	classIDs := make([]int64, 0, len(studentClasses))
	for _, classID := range studentClasses {
		classIDs = append(classIDs, classID)
	}
	if !(actor.IsAdmin() && len(classIDs) == 0) {
		if err := access.AuthorizeWrite(actor, classIDs); err != nil {
			return MarkResult{}, err
		}
	}

	// validate all
	if err := svc.validate.Struct(mr); err != nil {
		return MarkResult{}, err
	}
	var fldErrs []core.FieldError
	for i, e := range mr.Attendance {
		if _, ok := studentClasses[e.StudentID]; !ok {
			fldErrs = append(fldErrs, core.FieldError{
				Field: fmt.Sprintf("attendance[%d].student_id", i),
				Error: invalidStudentText,
			})
		}
	}
	if len(fldErrs) > 0 {
		return MarkResult{}, core.NewValidationError(nil, fldErrs...)
	}

	// then write
	res, err := svc.repo.UpsertRecords(ctx, mr.Date, mr.entries(), actor.ID)
	if err != nil {
		if errors.Cause(err) == ErrStudentNotFound { // deleted meanwhile
			return MarkResult{}, core.NewValidationError(err, core.FieldError{Field: "attendance", Error: invalidStudentText})
		}
		return MarkResult{}, errors.Wrap(err, "upserting records")
	}
	return res, nil
}
