// Package inmemdb implements the repositories in memory. It backs the tests.
package inmemdb

import (
	"sync"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
)

// DB holds every table behind one lock, so that cascades and
// cross-table checks see a consistent state.
type DB struct {
	mutex sync.RWMutex

	users      map[int64]*user.User
	classes    map[int64]*class.Class
	students   map[int64]*student.Student
	records    map[int64]*attendance.Record
	assignment map[int64]map[int64]struct{} // user id -> class ids

	pkCount int64
}

func Open() *DB {
	return &DB{
		users:      make(map[int64]*user.User),
		classes:    make(map[int64]*class.Class),
		students:   make(map[int64]*student.Student),
		records:    make(map[int64]*attendance.Record),
		assignment: make(map[int64]map[int64]struct{}),
	}
}

func (db *DB) nextID() int64 {
	db.pkCount++
	return db.pkCount
}

// deleteStudent removes the student and its attendance. Callers hold the write lock.
func (db *DB) deleteStudent(id int64) {
	for recID, rec := range db.records {
		if rec.StudentID == id {
			delete(db.records, recID)
		}
	}
	delete(db.students, id)
}

func (db *DB) classTeachers(classID int64) []class.Teacher {
	teachers := make([]class.Teacher, 0)
	for userID, classIDs := range db.assignment {
		if _, ok := classIDs[classID]; !ok {
			continue
		}
		if usr, ok := db.users[userID]; ok {
			teachers = append(teachers, class.Teacher{ID: usr.ID, Name: usr.Name, Email: usr.Email})
		}
	}
	sortBy(teachers, func(a, b class.Teacher) bool { return lessNameID(a.Name, a.ID, b.Name, b.ID) })
	return teachers
}
