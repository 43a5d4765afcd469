package inmemdb

import (
	"context"

	"github.com/trezcool/mahudhurio/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedID int64) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email && usr.ID != excludedID {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, u := range repo.db.users {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	usr.ID = repo.db.nextID()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id int64) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	origUsr, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	origUsr.Name = usr.Name
	origUsr.Email = usr.Email
	origUsr.Role = usr.Role
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	origUsr.UpdatedAt = usr.UpdatedAt
	return *origUsr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, role user.Role) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if role == "" || usr.Role == role {
			users = append(users, *usr)
		}
	}
	sortBy(users, func(a, b user.User) bool { return lessNameID(a.Name, a.ID, b.Name, b.ID) })
	return users, nil
}

func (repo *userRepository) QueryAssignedClassIDs(_ context.Context, userID int64) ([]int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make([]int64, 0, len(repo.db.assignment[userID]))
	for id := range repo.db.assignment[userID] {
		ids = append(ids, id)
	}
	sortBy(ids, func(a, b int64) bool { return a < b })
	return ids, nil
}

func (repo *userRepository) SetAssignedClassIDs(_ context.Context, userID int64, classIDs []int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[userID]; !ok {
		return user.ErrNotFound
	}
	assigned := make(map[int64]struct{}, len(classIDs))
	for _, id := range classIDs {
		if _, ok := repo.db.classes[id]; !ok {
			return user.ErrClassNotFound
		}
		assigned[id] = struct{}{}
	}
	repo.db.assignment[userID] = assigned
	return nil
}
