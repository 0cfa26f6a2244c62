package directory

import (
	"encoding/binary"
	"encoding/hex"
	"sort"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Unknown is served for names and emails the directory cannot resolve.
const Unknown = "unknown"

// User is a directory identity record.
type User struct {
	ID       int64  `json:"userId"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	RoleID   int64  `json:"roleId"`
	Active   bool   `json:"active"`
}

// Snapshot is an immutable view of one full directory fetch. It is never mutated after
// construction; refreshes build a new Snapshot and swap it in.
type Snapshot struct {
	users     []User
	byID      map[int64]User
	digest    string
	fetchedAt time.Time
}

// NewSnapshot indexes users by id. Later duplicates of an id win, mirroring a map rebuild.
func NewSnapshot(users []User, fetchedAt time.Time) *Snapshot {
	byID := make(map[int64]User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}

	ordered := make([]User, 0, len(byID))
	for _, user := range byID {
		ordered = append(ordered, user)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	return &Snapshot{
		users:     ordered,
		byID:      byID,
		digest:    digestUsers(ordered),
		fetchedAt: fetchedAt,
	}
}

// Len returns the number of distinct users.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.users)
}

// Users returns a copy of the records ordered by id.
func (s *Snapshot) Users() []User {
	if s == nil {
		return []User{}
	}
	out := make([]User, len(s.users))
	copy(out, s.users)
	return out
}

// Lookup returns the record for id.
func (s *Snapshot) Lookup(id int64) (User, bool) {
	if s == nil {
		return User{}, false
	}
	user, ok := s.byID[id]
	return user, ok
}

// Name returns the full name for id.
func (s *Snapshot) Name(id int64) (string, bool) {
	user, ok := s.Lookup(id)
	if !ok || user.FullName == "" {
		return "", false
	}
	return user.FullName, true
}

// Email returns the email address for id.
func (s *Snapshot) Email(id int64) (string, bool) {
	user, ok := s.Lookup(id)
	if !ok || user.Email == "" {
		return "", false
	}
	return user.Email, true
}

// Names builds a fresh id to name map.
func (s *Snapshot) Names() map[int64]string {
	out := make(map[int64]string, s.Len())
	if s == nil {
		return out
	}
	for _, user := range s.users {
		out[user.ID] = user.FullName
	}
	return out
}

// Emails builds a fresh id to email map.
func (s *Snapshot) Emails() map[int64]string {
	out := make(map[int64]string, s.Len())
	if s == nil {
		return out
	}
	for _, user := range s.users {
		out[user.ID] = user.Email
	}
	return out
}

// Digest identifies the snapshot content; identical upstream data yields identical digests.
func (s *Snapshot) Digest() string {
	if s == nil {
		return digestUsers(nil)
	}
	return s.digest
}

// FetchedAt reports when the snapshot was taken.
func (s *Snapshot) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}

func digestUsers(users []User) string {
	h, _ := blake2b.New256(nil)
	var buf [8]byte
	for _, user := range users {
		binary.BigEndian.PutUint64(buf[:], uint64(user.ID))
		h.Write(buf[:])
		for _, field := range []string{user.FullName, user.Email, user.Role, strconv.FormatInt(user.RoleID, 10), strconv.FormatBool(user.Active)} {
			binary.BigEndian.PutUint64(buf[:], uint64(len(field)))
			h.Write(buf[:])
			h.Write([]byte(field))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
