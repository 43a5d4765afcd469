// Package dashboard aggregates the landing statistics of each role.
package dashboard

import (
	"context"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/access"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
)

// RecentRecordsCount is the number of latest records shown on the dashboard.
const RecentRecordsCount = 10

type Stats struct {
	Role             user.Role                 `json:"role"`
	Date             string                    `json:"date"`
	TotalStudents    int                       `json:"total_students"`
	TotalClasses     int                       `json:"total_classes"`
	TodayAttendance  int                       `json:"today_attendance"`
	TodayAbsences    *int                      `json:"today_absences,omitempty"` // admin only
	Classes          []class.Summary           `json:"classes,omitempty"`        // teacher only
	RecentAttendance []attendance.RecordDetail `json:"recent_attendance"`
}

type Service struct {
	students   *student.Service
	classes    *class.Service
	attendance *attendance.Service
}

func NewService(students *student.Service, classes *class.Service, att *attendance.Service) *Service {
	return &Service{students: students, classes: classes, attendance: att}
}

// Stats returns the dashboard of actor: school-wide for admins, limited to the assigned classes for teachers.
func (svc *Service) Stats(ctx context.Context, actor *user.Actor) (Stats, error) {
	scope, err := access.ScopeFor(actor)
	if err != nil {
		return Stats{}, err
	}

	today := attendance.NowFunc().Format(core.DateLayout)
	stats := Stats{Role: actor.Role, Date: today}

	if stats.TotalStudents, err = svc.students.CountIn(ctx, scope); err != nil {
		return Stats{}, err
	}
	todayQuery := attendance.Query{Scope: scope, Filter: attendance.Filter{Date: today}}
	if stats.TodayAttendance, err = svc.attendance.Count(ctx, todayQuery); err != nil {
		return Stats{}, err
	}

	if actor.IsAdmin() {
		if stats.TotalClasses, err = svc.classes.Count(ctx); err != nil {
			return Stats{}, err
		}
		absQuery := todayQuery
		absQuery.Filter.Statuses = attendance.AbsenceStatuses
		absences, err := svc.attendance.Count(ctx, absQuery)
		if err != nil {
			return Stats{}, err
		}
		stats.TodayAbsences = &absences
	} else {
		if stats.Classes, err = svc.classes.SummariesIn(ctx, scope); err != nil {
			return Stats{}, err
		}
		stats.TotalClasses = len(stats.Classes)
	}

	recent, err := svc.attendance.QueryPage(ctx, attendance.Query{Scope: scope}, core.NewPageRequest(1, RecentRecordsCount))
	if err != nil {
		return Stats{}, err
	}
	stats.RecentAttendance = recent.Data
	return stats, nil
}
