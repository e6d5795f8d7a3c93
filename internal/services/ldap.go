package services

import (
	"crypto/tls"
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/guildhall/tabletop/backend/internal/config"
)

// LDAPService talks to the club's optional member directory. It serves
// two purposes: authenticating LDAP accounts at login and answering
// membership-group lookups for eligibility.
type LDAPService struct {
	config *config.LDAPConfig
}

func NewLDAPService(cfg *config.LDAPConfig) *LDAPService {
	return &LDAPService{config: cfg}
}

// Enabled reports whether the directory is configured.
func (s *LDAPService) Enabled() bool {
	return s != nil && s.config != nil && s.config.Enabled
}

// HasMemberGroup reports whether directory group membership should be
// used as the membership source.
func (s *LDAPService) HasMemberGroup() bool {
	return s.Enabled() && s.config.MemberGroup != ""
}

// LDAPUser is the directory record returned by Authenticate.
type LDAPUser struct {
	DN       string
	Username string
	Email    string
	Nickname string
}

func (s *LDAPService) connect() (*ldap.Conn, error) {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var conn *ldap.Conn
	var err error
	if s.config.UseSSL {
		conn, err = ldap.DialTLS("tcp", addr, &tls.Config{InsecureSkipVerify: true})
	} else {
		conn, err = ldap.Dial("tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	if s.config.BindDN != "" {
		if err := conn.Bind(s.config.BindDN, s.config.BindPassword); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to bind with service account: %w", err)
		}
	}
	return conn, nil
}

func (s *LDAPService) findUser(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	searchFilter := fmt.Sprintf(s.config.UserFilter, ldap.EscapeFilter(username))
	searchRequest := ldap.NewSearchRequest(
		s.config.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		searchFilter,
		[]string{"dn", "cn", "mail", "uid", "sAMAccountName", "memberOf"},
		nil,
	)

	result, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("LDAP search failed: %w", err)
	}
	if len(result.Entries) == 0 {
		return nil, fmt.Errorf("user not found in LDAP")
	}
	if len(result.Entries) > 1 {
		return nil, fmt.Errorf("multiple users found in LDAP")
	}
	return result.Entries[0], nil
}

// Authenticate verifies credentials against the directory.
func (s *LDAPService) Authenticate(username, password string) (*LDAPUser, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("LDAP is not enabled")
	}

	conn, err := s.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	entry, err := s.findUser(conn, username)
	if err != nil {
		return nil, err
	}

	// Bind as the user to verify the password
	if err := conn.Bind(entry.DN, password); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	user := &LDAPUser{
		DN:       entry.DN,
		Username: entry.GetAttributeValue("uid"),
		Email:    entry.GetAttributeValue("mail"),
		Nickname: entry.GetAttributeValue("cn"),
	}
	if user.Username == "" {
		// Active Directory
		user.Username = entry.GetAttributeValue("sAMAccountName")
	}
	return user, nil
}

// IsGroupMember reports whether the account belongs to the configured
// member group.
func (s *LDAPService) IsGroupMember(username string) (bool, error) {
	if !s.HasMemberGroup() {
		return false, fmt.Errorf("LDAP member group is not configured")
	}

	conn, err := s.connect()
	if err != nil {
		return false, err
	}
	defer conn.Close()

	entry, err := s.findUser(conn, username)
	if err != nil {
		return false, err
	}

	for _, group := range entry.GetAttributeValues("memberOf") {
		if group == s.config.MemberGroup {
			return true, nil
		}
	}
	return false, nil
}
