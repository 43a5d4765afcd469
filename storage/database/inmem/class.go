package inmemdb

import (
	"context"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/access"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/user"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls.ID = repo.db.nextID()
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) GetClass(_ context.Context, id int64) (class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return *cls, nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) UpdateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes[cls.ID]; !ok {
		return class.Class{}, class.ErrNotFound
	}
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) DeleteClass(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes[id]; !ok {
		return class.ErrNotFound
	}
	for stdID, std := range repo.db.students {
		if std.ClassID == id {
			repo.db.deleteStudent(stdID)
		}
	}
	for _, classIDs := range repo.db.assignment {
		delete(classIDs, id)
	}
	delete(repo.db.classes, id)
	return nil
}

func (repo *classRepository) studentsCount(classID int64) int {
	var n int
	for _, std := range repo.db.students {
		if std.ClassID == classID {
			n++
		}
	}
	return n
}

func (repo *classRepository) QueryClasses(_ context.Context, pr core.PageRequest) ([]class.ListItem, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]class.Class, 0, len(repo.db.classes))
	for _, cls := range repo.db.classes {
		classes = append(classes, *cls)
	}
	sortBy(classes, func(a, b class.Class) bool { return newestFirst(a.CreatedAt, a.ID, b.CreatedAt, b.ID) })

	page := paginate(classes, pr)
	items := make([]class.ListItem, 0, len(page))
	for _, cls := range page {
		items = append(items, class.ListItem{
			Class:         cls,
			StudentsCount: repo.studentsCount(cls.ID),
			Teachers:      repo.db.classTeachers(cls.ID),
		})
	}
	return items, len(classes), nil
}

func (repo *classRepository) QueryClassOptions(_ context.Context, scope access.Scope) ([]class.Option, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	opts := make([]class.Option, 0)
	for _, cls := range repo.db.classes {
		if scope.Allows(cls.ID) {
			opts = append(opts, class.Option{ID: cls.ID, Name: cls.Name})
		}
	}
	sortBy(opts, func(a, b class.Option) bool { return lessNameID(a.Name, a.ID, b.Name, b.ID) })
	return opts, nil
}

func (repo *classRepository) QueryClassSummaries(_ context.Context, scope access.Scope) ([]class.Summary, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sums := make([]class.Summary, 0)
	for _, cls := range repo.db.classes {
		if scope.Allows(cls.ID) {
			sums = append(sums, class.Summary{ID: cls.ID, Name: cls.Name, StudentsCount: repo.studentsCount(cls.ID)})
		}
	}
	sortBy(sums, func(a, b class.Summary) bool { return lessNameID(a.Name, a.ID, b.Name, b.ID) })
	return sums, nil
}

func (repo *classRepository) QueryClassStudents(_ context.Context, classID int64) ([]class.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]class.Student, 0)
	for _, std := range repo.db.students {
		if std.ClassID == classID {
			students = append(students, class.Student{ID: std.ID, Name: std.Name, StudentCode: std.StudentCode})
		}
	}
	sortBy(students, func(a, b class.Student) bool { return lessNameID(a.Name, a.ID, b.Name, b.ID) })
	return students, nil
}

func (repo *classRepository) QueryClassTeachers(_ context.Context, classID int64) ([]class.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.classTeachers(classID), nil
}

func (repo *classRepository) SetClassTeachers(_ context.Context, classID int64, teacherIDs []int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classes[classID]; !ok {
		return class.ErrNotFound
	}
	keep := make(map[int64]struct{}, len(teacherIDs))
	for _, id := range teacherIDs {
		usr, ok := repo.db.users[id]
		if !ok || usr.Role != user.RoleTeacher {
			return class.ErrInvalidTeacher
		}
		keep[id] = struct{}{}
	}

	for userID, classIDs := range repo.db.assignment {
		if _, ok := keep[userID]; !ok {
			delete(classIDs, classID)
		}
	}
	for id := range keep {
		if repo.db.assignment[id] == nil {
			repo.db.assignment[id] = make(map[int64]struct{})
		}
		repo.db.assignment[id][classID] = struct{}{}
	}
	return nil
}

func (repo *classRepository) CountClasses(_ context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.classes), nil
}
