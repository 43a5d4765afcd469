package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/storage/database"
)

const userColumns = "id, name, email, role, password_hash, created_at, updated_at"

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedID int64) error {
	q, args, err := psql.Select("COUNT(*)").From("users").
		Where("email = ?", email).
		Where("id <> ?", excludedID).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	var n int
	if err = repo.db.GetContext(ctx, &n, q, args...); err != nil {
		return errors.Wrap(err, "counting users")
	}
	if n > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q, args, err := psql.Insert("users").
		Columns("name", "email", "role", "password_hash", "created_at", "updated_at").
		Values(usr.Name, usr.Email, string(usr.Role), usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	if err = repo.db.GetContext(ctx, &usr.ID, q, args...); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) getUserBy(ctx context.Context, column string, value interface{}) (user.User, error) {
	q, args, err := psql.Select(userColumns).From("users").Where(column+" = ?", value).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	var usr user.User
	if err = repo.db.GetContext(ctx, &usr, q, args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	return repo.getUserBy(ctx, "id", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUserBy(ctx, "email", email)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	ub := psql.Update("users").
		Set("name", usr.Name).
		Set("email", usr.Email).
		Set("role", string(usr.Role)).
		Set("updated_at", usr.UpdatedAt).
		Where("id = ?", usr.ID).
		Suffix("RETURNING " + userColumns)
	if usr.PasswordHash != nil {
		ub = ub.Set("password_hash", usr.PasswordHash)
	}
	q, args, err := ub.ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	var updated user.User
	if err = repo.db.GetContext(ctx, &updated, q, args...); err != nil {
		switch {
		case errors.Cause(err) == sql.ErrNoRows:
			return user.User{}, user.ErrNotFound
		case isUniqueViolation(err):
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return updated, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, role user.Role) ([]user.User, error) {
	sb := psql.Select(userColumns).From("users").OrderBy("name ASC", "id ASC")
	if role != "" {
		sb = sb.Where("role = ?", string(role))
	}
	q, args, err := sb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	users := make([]user.User, 0)
	if err = repo.db.SelectContext(ctx, &users, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	return users, nil
}

func (repo *userRepository) QueryAssignedClassIDs(ctx context.Context, userID int64) ([]int64, error) {
	q, args, err := psql.Select("class_id").From("teacher_classes").
		Where("user_id = ?", userID).
		OrderBy("class_id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	ids := make([]int64, 0)
	if err = repo.db.SelectContext(ctx, &ids, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting assigned classes")
	}
	return ids, nil
}

func (repo *userRepository) SetAssignedClassIDs(ctx context.Context, userID int64, classIDs []int64) error {
	if _, err := repo.GetUserByID(ctx, userID); err != nil {
		return err
	}
	return database.WithinTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q, args, err := psql.Delete("teacher_classes").Where("user_id = ?", userID).ToSql()
		if err != nil {
			return errors.Wrap(err, "building query")
		}
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return errors.Wrap(err, "deleting assigned classes")
		}
		if len(classIDs) == 0 {
			return nil
		}

		ib := psql.Insert("teacher_classes").Columns("user_id", "class_id")
		for _, id := range classIDs {
			ib = ib.Values(userID, id)
		}
		if q, args, err = ib.ToSql(); err != nil {
			return errors.Wrap(err, "building query")
		}
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			if isForeignKeyViolation(err) {
				return user.ErrClassNotFound
			}
			return errors.Wrap(err, "inserting assigned classes")
		}
		return nil
	})
}
