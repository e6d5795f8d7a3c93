package services

import (
	"errors"
	"time"

	"github.com/guildhall/tabletop/backend/internal/models"
	"gorm.io/gorm"
)

// MembershipService resolves the membership and age attributes that the
// eligibility checks consume. Membership normally comes from the local
// member_until column; for LDAP accounts with a configured member group
// the directory is authoritative.
type MembershipService struct {
	db   *gorm.DB
	ldap *LDAPService
}

func NewMembershipService(db *gorm.DB, ldap *LDAPService) *MembershipService {
	return &MembershipService{db: db, ldap: ldap}
}

// IsMember reports whether the account holds an active membership at now.
func (s *MembershipService) IsMember(userID uint, now time.Time) (bool, error) {
	user, err := s.loadUser(userID)
	if err != nil {
		return false, err
	}

	if user.AuthType == "ldap" && s.ldap != nil && s.ldap.HasMemberGroup() {
		return s.ldap.IsGroupMember(user.Username)
	}
	return user.IsMember(now), nil
}

// AgeOf returns the account holder's age in full years at now, or nil
// when no birth date is on file.
func (s *MembershipService) AgeOf(userID uint, now time.Time) (*int, error) {
	user, err := s.loadUser(userID)
	if err != nil {
		return nil, err
	}
	return user.Age(now), nil
}

// CandidateFor builds the eligibility candidate for a club account.
func (s *MembershipService) CandidateFor(userID uint, now time.Time) (Candidate, error) {
	user, err := s.loadUser(userID)
	if err != nil {
		return Candidate{}, err
	}

	isMember := user.IsMember(now)
	if user.AuthType == "ldap" && s.ldap != nil && s.ldap.HasMemberGroup() {
		if m, err := s.ldap.IsGroupMember(user.Username); err == nil {
			isMember = m
		}
	}

	return Candidate{
		Identity: MemberIdentity{UserID: userID},
		IsMember: isMember,
		Age:      user.Age(now),
	}, nil
}

func (s *MembershipService) loadUser(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
