package seed

import (
	"context"
	"fmt"
	"log"

	"canopy/internal/models"
	"canopy/internal/visibility"

	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	Users              int
	ProjectsPerUser    int
	BranchesPerProject int
	PostsPerBranch     int
	// InteractionsPerUser is an upper bound; duplicate rolls are skipped.
	InteractionsPerUser int
	FollowsPerUser      int
	// PrivateRatio is the share of entities created private, in [0, 1].
	PrivateRatio float64
	MaxDays      int
	RandSeed     int64
	SkipBcrypt   bool
	DryRun       bool
}

// DefaultOptions is a small but well-connected demo dataset.
func DefaultOptions() Options {
	return Options{
		Users:               20,
		ProjectsPerUser:     2,
		BranchesPerProject:  2,
		PostsPerBranch:      3,
		InteractionsPerUser: 25,
		FollowsPerUser:      5,
		PrivateRatio:        0.15,
		MaxDays:             30,
	}
}

// Summary counts what a run created.
type Summary struct {
	Users        int `yaml:"users"`
	Projects     int `yaml:"projects"`
	Branches     int `yaml:"branches"`
	Posts        int `yaml:"posts"`
	Interactions int `yaml:"interactions"`
	Follows      int `yaml:"follows"`
}

// Seeder populates the database through a Factory.
type Seeder struct {
	db *gorm.DB
	f  *Factory
}

// NewSeeder returns a seeder writing to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, f: NewFactory(db, opts)}
}

// ClearAll deletes every seeded table, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	if s.f.opts.DryRun {
		log.Println("[dry-run] ClearAll (no DB write)")
		return nil
	}
	log.Println("🗑️  Clearing existing data...")
	tables := []any{
		&models.Interaction{},
		&models.Follow{},
		&models.PermissionAllowedUser{},
		&models.Permission{},
		&models.Post{},
		&models.Branch{},
		&models.Project{},
		&models.User{},
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range tables {
			if err := tx.Unscoped().Where("1 = 1").Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// Run creates users, their content trees, follows and interactions.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	opts := s.f.opts
	if opts.Users < 1 {
		return nil, fmt.Errorf("at least one user is required")
	}
	if opts.PrivateRatio < 0 || opts.PrivateRatio > 1 {
		return nil, fmt.Errorf("private ratio must be between 0 and 1")
	}

	summary := &Summary{}
	f := s.f
	f.ctx = ctx

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return summary, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	summary.Users = len(users)
	log.Printf("✓ %d users created", summary.Users)

	var entities []models.Entity
	for _, author := range users {
		for p := 0; p < opts.ProjectsPerUser; p++ {
			project, err := f.CreateProject(author, users)
			if err != nil {
				return summary, fmt.Errorf("create project: %w", err)
			}
			entities = append(entities, project)
			summary.Projects++

			for b := 0; b < opts.BranchesPerProject; b++ {
				branchAuthor := f.pick(users)
				branch, err := f.CreateBranch(project, branchAuthor, users)
				if err != nil {
					return summary, fmt.Errorf("create branch: %w", err)
				}
				entities = append(entities, branch)
				summary.Branches++

				for n := 0; n < opts.PostsPerBranch; n++ {
					post, err := f.CreatePost(branch, f.pick(users), users)
					if err != nil {
						return summary, fmt.Errorf("create post: %w", err)
					}
					entities = append(entities, post)
					summary.Posts++
				}
			}
		}
	}
	log.Printf("✓ %d projects, %d branches, %d posts created", summary.Projects, summary.Branches, summary.Posts)

	if len(users) > 1 {
		for _, follower := range users {
			for i := 0; i < opts.FollowsPerUser; i++ {
				followee := f.pick(users)
				if followee.ID == follower.ID {
					continue
				}
				created, err := f.CreateFollow(follower, followee)
				if err != nil {
					return summary, fmt.Errorf("create follow: %w", err)
				}
				if created {
					summary.Follows++
				}
			}
		}
		log.Printf("✓ %d follows created", summary.Follows)
	}

	if len(entities) > 0 {
		for _, u := range users {
			for i := 0; i < opts.InteractionsPerUser; i++ {
				e := entities[f.faker.Number(0, len(entities)-1)]
				if !visibility.ForViewer(models.NewViewer(u.ID)).Allows(e.Access()) {
					continue
				}
				interaction, err := f.CreateInteraction(u, e.Ref(), f.interactionType(), e.Updated())
				if err != nil {
					return summary, fmt.Errorf("create interaction: %w", err)
				}
				if interaction != nil {
					summary.Interactions++
				}
			}
		}
		log.Printf("✓ %d interactions created", summary.Interactions)
	}

	return summary, nil
}

func (f *Factory) pick(users []*models.User) *models.User {
	return users[f.faker.Number(0, len(users)-1)]
}

// interactionType favours likes; reports and hides stay rare.
func (f *Factory) interactionType() models.InteractionType {
	switch n := f.faker.Number(1, 100); {
	case n <= 55:
		return models.InteractionLike
	case n <= 75:
		return models.InteractionBookmark
	case n <= 93:
		return models.InteractionShare
	case n <= 97:
		return models.InteractionHide
	default:
		return models.InteractionReport
	}
}
