package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"cashpos/internal/apperror"
	"cashpos/internal/dto"
	"cashpos/internal/model"
	"cashpos/internal/repository"

	"github.com/rs/zerolog/log"
)

const maxRegisterName = 100

// RegisterCache is a read-through cache for the register list. Implementations
// treat their own failures as misses. SetRegisters is a no-op when the cache
// was invalidated after gen was read.
type RegisterCache interface {
	GetRegisters(ctx context.Context) ([]model.Register, bool)
	Generation(ctx context.Context) int64
	SetRegisters(ctx context.Context, gen int64, regs []model.Register)
	Invalidate(ctx context.Context)
}

type RegisterService interface {
	Create(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResponse, error)
	Get(ctx context.Context, id int64) (*dto.RegisterResponse, error)
	List(ctx context.Context) ([]dto.RegisterResponse, error)
	Rename(ctx context.Context, id int64, req dto.RegisterRequest) (*dto.RegisterResponse, error)
	// Remove fails with a ConflictError once the register has any history.
	Remove(ctx context.Context, id int64) error
}

type registerService struct {
	repo  repository.RegisterRepository
	cache RegisterCache
}

func NewRegisterService(repo repository.RegisterRepository, cache RegisterCache) RegisterService {
	return &registerService{repo: repo, cache: cache}
}

func (s *registerService) Create(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResponse, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	reg := &model.Register{Name: name}
	if err := s.repo.Create(ctx, reg); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	log.Info().Int64("register_id", reg.ID).Str("name", reg.Name).Msg("register created")
	return registerToResponse(reg), nil
}

func (s *registerService) Get(ctx context.Context, id int64) (*dto.RegisterResponse, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, registerErr(err, id)
	}
	return registerToResponse(reg), nil
}

func (s *registerService) List(ctx context.Context) ([]dto.RegisterResponse, error) {
	regs, ok := s.cache.GetRegisters(ctx)
	if !ok {
		gen := s.cache.Generation(ctx)
		var err error
		regs, err = s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.SetRegisters(ctx, gen, regs)
	}
	out := make([]dto.RegisterResponse, 0, len(regs))
	for i := range regs {
		out = append(out, *registerToResponse(&regs[i]))
	}
	return out, nil
}

func (s *registerService) Rename(ctx context.Context, id int64, req dto.RegisterRequest) (*dto.RegisterResponse, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	reg, err := s.repo.Rename(ctx, id, name)
	if err != nil {
		return nil, registerErr(err, id)
	}
	s.cache.Invalidate(ctx)
	return registerToResponse(reg), nil
}

func (s *registerService) Remove(ctx context.Context, id int64) error {
	if err := s.repo.DeleteWithoutHistory(ctx, id); err != nil {
		if errors.Is(err, repository.ErrHasHistory) {
			return apperror.Conflict("register %d has sessions or ledger events and cannot be removed", id)
		}
		return registerErr(err, id)
	}
	s.cache.Invalidate(ctx)
	log.Info().Int64("register_id", id).Msg("register removed")
	return nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.Validation("name", "must not be empty")
	}
	if utf8.RuneCountInString(name) > maxRegisterName {
		return "", apperror.Validation("name", "must be at most %d characters", maxRegisterName)
	}
	return name, nil
}

// registerErr maps repository.ErrNotFound to a NotFoundError for the register.
func registerErr(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound("register", id)
	}
	return err
}

func registerToResponse(r *model.Register) *dto.RegisterResponse {
	return &dto.RegisterResponse{
		ID:        r.ID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
