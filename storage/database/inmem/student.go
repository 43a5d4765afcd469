package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/access"
	"github.com/trezcool/mahudhurio/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) codeTaken(code string, excludedID int64) bool {
	for _, std := range repo.db.students {
		if std.StudentCode == code && std.ID != excludedID {
			return true
		}
	}
	return false
}

func (repo *studentRepository) CheckStudentCodeUniqueness(_ context.Context, code string, excludedID int64) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if repo.codeTaken(code, excludedID) {
		return student.ErrStudentCodeExists
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.codeTaken(std.StudentCode, 0) {
		return student.Student{}, student.ErrStudentCodeExists
	}
	std.ID = repo.db.nextID()
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id int64) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[std.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	if repo.codeTaken(std.StudentCode, std.ID) {
		return student.Student{}, student.ErrStudentCodeExists
	}
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return student.ErrNotFound
	}
	repo.db.deleteStudent(id)
	return nil
}

func matchesStudent(std *student.Student, scope access.Scope, filter student.Filter) bool {
	if !scope.Allows(std.ClassID) {
		return false
	}
	if filter.ClassID != 0 && std.ClassID != filter.ClassID {
		return false
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(std.Name), search) &&
			!strings.Contains(strings.ToLower(std.StudentCode), search) {
			return false
		}
	}
	return true
}

func (repo *studentRepository) QueryStudents(_ context.Context, scope access.Scope, filter student.Filter, pr core.PageRequest) ([]student.ListItem, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	items := make([]student.ListItem, 0)
	for _, std := range repo.db.students {
		if !matchesStudent(std, scope, filter) {
			continue
		}
		item := student.ListItem{Student: *std}
		if cls, ok := repo.db.classes[std.ClassID]; ok {
			item.ClassName = cls.Name
		}
		items = append(items, item)
	}
	sortBy(items, func(a, b student.ListItem) bool { return newestFirst(a.CreatedAt, a.ID, b.CreatedAt, b.ID) })
	return paginate(items, pr), len(items), nil
}

func (repo *studentRepository) CountStudents(_ context.Context, scope access.Scope) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, std := range repo.db.students {
		if matchesStudent(std, scope, student.Filter{}) {
			n++
		}
	}
	return n, nil
}
