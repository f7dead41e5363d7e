package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/jinzhu/now"
	"github.com/pkg/errors"

	"github.com/totegamma/passgate/internal/domain"
	"github.com/totegamma/passgate/plate"
)

type CreatePassInput struct {
	VehicleType   domain.VehicleType
	VehicleBrand  string
	VehicleNumber string
	EntryDate     string
	Address       string
	Comment       *string
	IsPermanent   bool
	// UserID lets staff file a pass on behalf of a resident.
	UserID uint
}

// UpdatePassInput is a partial update; nil fields are left unchanged.
type UpdatePassInput struct {
	VehicleType     *domain.VehicleType
	VehicleBrand    *string
	VehicleNumber   *string
	EntryDate       *string
	Address         *string
	Comment         *string
	SecurityComment *string
	IsPermanent     *bool
	Status          *domain.PassStatus
}

type PassUsecase struct {
	repo     PassRepository
	config   *GateConfigUsecase
	notifier Notifier
}

func NewPassUsecase(repo PassRepository, config *GateConfigUsecase, notifier Notifier) *PassUsecase {
	return &PassUsecase{repo: repo, config: config, notifier: notifier}
}

func (uc *PassUsecase) Create(ctx context.Context, requester domain.Requester, input CreatePassInput) (domain.Pass, error) {
	if requester.Role == domain.RoleSecurity {
		return domain.Pass{}, domain.ErrForbidden
	}

	verr := &domain.ValidationError{}
	if !input.VehicleType.Valid() {
		verr.Add("vehicleType", "must be light or truck")
	}
	if err := plate.Validate(input.VehicleNumber); err != nil {
		verr.Add("vehicleNumber", err.Error())
	}
	if strings.TrimSpace(input.Address) == "" {
		verr.Add("address", "address is required")
	}
	entryDate := ""
	if input.EntryDate != "" || !input.IsPermanent {
		parsed, err := uc.parseDate(ctx, input.EntryDate)
		if err != nil {
			verr.Add("entryDate", err.Error())
		}
		entryDate = parsed
	}
	if err := verr.Err(); err != nil {
		return domain.Pass{}, err
	}

	owner := requester.ID
	if requester.Role == domain.RoleAdmin && input.UserID != 0 {
		owner = input.UserID
	}

	number := plate.Canonical(input.VehicleNumber)
	permanent := input.IsPermanent
	created, err := uc.repo.Create(ctx, domain.Pass{
		UserID:        owner,
		VehicleType:   input.VehicleType,
		VehicleBrand:  strings.TrimSpace(input.VehicleBrand),
		VehicleNumber: number,
		PlateNorm:     plate.Normalize(number),
		EntryDate:     entryDate,
		Address:       strings.TrimSpace(input.Address),
		Comment:       input.Comment,
		IsPermanent:   &permanent,
		Status:        domain.PassPending,
	})
	if err != nil {
		return domain.Pass{}, errors.Wrap(err, "create pass")
	}

	uc.notifier.Notify(ctx, domain.NotifyNewPass, domain.Notification{
		Message: "New pass for " + created.VehicleNumber,
		PassID:  created.ID,
	})
	return created, nil
}

func (uc *PassUsecase) Update(ctx context.Context, requester domain.Requester, id uint, input UpdatePassInput) (domain.Pass, error) {
	pass, err := uc.repo.Get(ctx, id)
	if err != nil {
		return domain.Pass{}, err
	}
	if !requester.Role.IsStaff() && pass.UserID != requester.ID {
		return domain.Pass{}, domain.ErrForbidden
	}

	verr := &domain.ValidationError{}
	if input.VehicleType != nil {
		if !input.VehicleType.Valid() {
			verr.Add("vehicleType", "must be light or truck")
		} else {
			pass.VehicleType = *input.VehicleType
		}
	}
	if input.VehicleBrand != nil {
		pass.VehicleBrand = strings.TrimSpace(*input.VehicleBrand)
	}
	if input.VehicleNumber != nil {
		if err := plate.Validate(*input.VehicleNumber); err != nil {
			verr.Add("vehicleNumber", err.Error())
		} else {
			pass.VehicleNumber = plate.Canonical(*input.VehicleNumber)
			pass.PlateNorm = plate.Normalize(pass.VehicleNumber)
		}
	}
	if input.IsPermanent != nil {
		permanent := *input.IsPermanent
		pass.IsPermanent = &permanent
	}
	if input.EntryDate != nil {
		parsed, err := uc.parseDate(ctx, *input.EntryDate)
		if err != nil {
			verr.Add("entryDate", err.Error())
		} else {
			pass.EntryDate = parsed
		}
	}
	if input.Address != nil {
		if strings.TrimSpace(*input.Address) == "" {
			verr.Add("address", "address must not be empty")
		} else {
			pass.Address = strings.TrimSpace(*input.Address)
		}
	}
	// security may annotate but not rewrite the resident's comment
	if input.Comment != nil && requester.Role != domain.RoleSecurity {
		pass.Comment = input.Comment
	}
	if input.SecurityComment != nil {
		if !requester.Role.IsStaff() {
			verr.Add("securityComment", "only staff may set security comments")
		} else {
			pass.SecurityComment = input.SecurityComment
		}
	}
	if input.Status != nil {
		switch {
		case !input.Status.Valid():
			verr.Add("status", "unknown status")
		case !requester.Role.IsStaff():
			verr.Add("status", "only staff may change status")
		default:
			pass.Status = *input.Status
		}
	}
	if err := verr.Err(); err != nil {
		return domain.Pass{}, err
	}

	updated, err := uc.repo.Update(ctx, pass)
	if err != nil {
		return domain.Pass{}, errors.Wrap(err, "update pass")
	}

	uc.notifier.Notify(ctx, domain.NotifyPassUpdated, domain.Notification{
		Message: "Pass updated",
		PassID:  updated.ID,
	})
	return updated, nil
}

// Delete soft-deletes a pass; it stops matching gate checks immediately.
func (uc *PassUsecase) Delete(ctx context.Context, requester domain.Requester, id uint) error {
	pass, err := uc.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if requester.Role != domain.RoleAdmin && pass.UserID != requester.ID {
		return domain.ErrForbidden
	}

	err = uc.repo.SoftDelete(ctx, id)
	if err != nil {
		return errors.Wrap(err, "delete pass")
	}

	uc.notifier.Notify(ctx, domain.NotifyPassDeleted, domain.Notification{
		Message: "Pass deleted",
		PassID:  id,
	})
	return nil
}

func (uc *PassUsecase) Get(ctx context.Context, requester domain.Requester, id uint) (domain.Pass, error) {
	pass, err := uc.repo.Get(ctx, id)
	if err != nil {
		return domain.Pass{}, err
	}
	if !requester.Role.IsStaff() && pass.UserID != requester.ID {
		return domain.Pass{}, domain.ErrForbidden
	}
	return pass, nil
}

func (uc *PassUsecase) ListMine(ctx context.Context, requester domain.Requester) ([]domain.Pass, error) {
	return uc.repo.List(ctx, domain.PassFilter{UserID: requester.ID})
}

// ListAll is the authoritative listing monitors poll when the live stream
// is unavailable.
func (uc *PassUsecase) ListAll(ctx context.Context, requester domain.Requester, filter domain.PassFilter) ([]domain.Pass, error) {
	if !requester.Role.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if filter.EntryDate != "" {
		parsed, err := uc.parseDate(ctx, filter.EntryDate)
		if err != nil {
			verr := &domain.ValidationError{}
			verr.Add("date", err.Error())
			return nil, verr
		}
		filter.EntryDate = parsed
	}
	return uc.repo.List(ctx, filter)
}

// parseDate reduces a date or timestamp to YYYY-MM-DD in the gate's zone.
func (uc *PassUsecase) parseDate(ctx context.Context, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("entry date is required")
	}
	loc := location(ctx, uc.config.Get(ctx).Timezone)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc).Format(time.DateOnly), nil
	}
	t, err := now.ParseInLocation(loc, s)
	if err != nil {
		return "", errors.New("entry date must look like YYYY-MM-DD")
	}
	return t.Format(time.DateOnly), nil
}

