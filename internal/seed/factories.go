// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"canopy/internal/models"
	"canopy/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password every seeded user signs in with.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
// Users and content go through the repositories the API uses; follows and
// interactions are inserted directly so duplicates can be skipped.
type Factory struct {
	ctx      context.Context
	db       *gorm.DB
	users    repository.UserRepository
	entities repository.EntityRepository
	opts     Options
	faker    *gofakeit.Faker
	now      time.Time
	hashed   string
	// synthetic ID counter when running in DryRun mode
	nextID   uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB. A zero
// opts.RandSeed seeds from the clock.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		ctx:      context.Background(),
		db:       db,
		users:    repository.NewUserRepository(db),
		// Only Create is used, which needs no scorer or cache.
		entities: repository.NewEntityRepository(db, nil, nil, 0),
		opts:     opts,
		faker:    gofakeit.New(seed),
		now:      time.Now().UTC(),
		nextID:   1000,
	}
}

func (f *Factory) password() (string, error) {
	if f.opts.SkipBcrypt {
		return DefaultPassword, nil
	}
	if f.hashed == "" {
		h, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("hash seed password: %w", err)
		}
		f.hashed = string(h)
	}
	return f.hashed, nil
}

// pastTime returns a realistic timestamp within the last MaxDays.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute
	return f.now.Add(-back)
}

// after returns a timestamp between t and now.
func (f *Factory) after(t time.Time) time.Time {
	span := int(f.now.Sub(t) / time.Minute)
	if span <= 0 {
		return t
	}
	return t.Add(time.Duration(f.faker.Number(0, span)) * time.Minute)
}

// permission rolls the entity's visibility. Private entities are shared with
// up to two of the candidates.
func (f *Factory) permission(candidates []*models.User, authorID uint) *models.Permission {
	p := &models.Permission{AllowShare: true, AllowBranch: true}
	if f.faker.Float64Range(0, 1) >= f.opts.PrivateRatio {
		return p
	}
	p.Private = true
	p.AllowShare = false
	for i := 0; i < 2 && len(candidates) > 0; i++ {
		u := candidates[f.faker.Number(0, len(candidates)-1)]
		if u.ID == authorID || containsUser(p.AllowedUsers, u.ID) {
			continue
		}
		p.AllowedUsers = append(p.AllowedUsers, models.PermissionAllowedUser{UserID: u.ID})
	}
	return p
}

func containsUser(allowed []models.PermissionAllowedUser, id uint) bool {
	for _, a := range allowed {
		if a.UserID == id {
			return true
		}
	}
	return false
}

// persist runs write unless this is a dry run.
func (f *Factory) persist(describe string, write func() error) error {
	if f.opts.DryRun {
		f.nextID++
		log.Printf("[dry-run] %s (no DB write)", describe)
		return nil
	}
	return write()
}

// CreateUser constructs and persists a sample user.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	pw, err := f.password()
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username: strings.ToLower(f.faker.Username()) + fmt.Sprintf("%d", f.faker.Number(100, 999)),
		Email:    f.faker.Email(),
		Password: pw,
		Bio:      f.faker.Sentence(10),
		Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.persist("CreateUser "+user.Username, func() error { return f.users.Create(f.ctx, user) }); err != nil {
		return nil, err
	}
	if f.opts.DryRun {
		user.ID = f.nextID
	}
	return user, nil
}

// CreateProject persists a project authored by author.
func (f *Factory) CreateProject(author *models.User, audience []*models.User, overrides ...func(*models.Project)) (*models.Project, error) {
	created := f.pastTime()
	project := &models.Project{
		AuthorID:    author.ID,
		Title:       f.faker.AppName(),
		Description: f.faker.Paragraph(1, 2, 12, " "),
		Permissions: f.permission(audience, author.ID),
		CreatedAt:   created,
		UpdatedAt:   f.after(created),
	}
	for _, override := range overrides {
		override(project)
	}

	if err := f.persist("CreateProject "+project.Title, func() error { return f.entities.Create(f.ctx, project) }); err != nil {
		return nil, err
	}
	if f.opts.DryRun {
		project.ID = f.nextID
	}
	return project, nil
}

// CreateBranch persists a branch of project. Branches never predate their project.
func (f *Factory) CreateBranch(project *models.Project, author *models.User, audience []*models.User, overrides ...func(*models.Branch)) (*models.Branch, error) {
	created := f.after(project.CreatedAt)
	branch := &models.Branch{
		ProjectID:   project.ID,
		AuthorID:    author.ID,
		Title:       f.faker.HipsterWord() + "-" + f.faker.Word(),
		Description: f.faker.Sentence(12),
		Permissions: f.permission(audience, author.ID),
		CreatedAt:   created,
		UpdatedAt:   f.after(created),
	}
	for _, override := range overrides {
		override(branch)
	}

	if err := f.persist("CreateBranch "+branch.Title, func() error { return f.entities.Create(f.ctx, branch) }); err != nil {
		return nil, err
	}
	if f.opts.DryRun {
		branch.ID = f.nextID
	}
	return branch, nil
}

// CreatePost persists a post on branch.
func (f *Factory) CreatePost(branch *models.Branch, author *models.User, audience []*models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	created := f.after(branch.CreatedAt)
	post := &models.Post{
		BranchID:    branch.ID,
		AuthorID:    author.ID,
		Content:     f.faker.Paragraph(1, 3, 10, "\n"),
		Permissions: f.permission(audience, author.ID),
		CreatedAt:   created,
		UpdatedAt:   f.after(created),
	}
	for _, override := range overrides {
		override(post)
	}

	if err := f.persist("CreatePost", func() error { return f.entities.Create(f.ctx, post) }); err != nil {
		return nil, err
	}
	if f.opts.DryRun {
		post.ID = f.nextID
	}
	return post, nil
}

// CreateInteraction records user's interaction of type t on ref, no earlier
// than since. Duplicates are skipped and reported as (nil, nil).
func (f *Factory) CreateInteraction(user *models.User, ref models.EntityRef, t models.InteractionType, since time.Time) (*models.Interaction, error) {
	interaction := &models.Interaction{
		EntityType: ref.Type,
		EntityID:   ref.ID,
		UserID:     user.ID,
		Type:       t,
		CreatedAt:  f.after(since),
	}
	if f.opts.DryRun {
		return interaction, f.persist("CreateInteraction "+ref.String(), nil)
	}
	res := f.db.WithContext(f.ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(interaction)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return interaction, nil
}

// CreateFollow makes follower follow followee. It reports false when the
// pair already existed.
func (f *Factory) CreateFollow(follower, followee *models.User) (bool, error) {
	follow := &models.Follow{FollowerID: follower.ID, FolloweeID: followee.ID}
	if f.opts.DryRun {
		return true, f.persist(fmt.Sprintf("CreateFollow %d->%d", follower.ID, followee.ID), nil)
	}
	res := f.db.WithContext(f.ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(follow)
	return res.RowsAffected > 0, res.Error
}
