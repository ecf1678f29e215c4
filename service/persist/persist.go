package persist

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"
)

// DBID represents a database ID
type DBID string

// CreationTime represents the time a record was created
type CreationTime time.Time

// LastUpdatedTime represents the time a record was last updated
type LastUpdatedTime time.Time

// NullString represents a string that may be null in the DB
type NullString string

// GenerateID generates an application-wide unique ID
func GenerateID() DBID {
	return DBID(ksuid.New().String())
}

func (d DBID) String() string {
	return string(d)
}

// Value implements the driver.Valuer interface for the DBID type
func (d DBID) Value() (driver.Value, error) {
	if d == "" {
		return GenerateID().String(), nil
	}
	return d.String(), nil
}

// Scan implements the sql.Scanner interface for the DBID type
func (d *DBID) Scan(i interface{}) error {
	if i == nil {
		*d = DBID("")
		return nil
	}
	*d = DBID(i.(string))
	return nil
}

// Time returns the time.Time value of the CreationTime
func (c CreationTime) Time() time.Time {
	return time.Time(c)
}

// MarshalJSON returns the JSON representation of the CreationTime
func (c CreationTime) MarshalJSON() ([]byte, error) {
	return c.Time().MarshalJSON()
}

// UnmarshalJSON sets the CreationTime from its JSON representation
func (c *CreationTime) UnmarshalJSON(b []byte) error {
	t := time.Time{}
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	*c = CreationTime(t)
	return nil
}

// Value implements the driver.Valuer interface for the CreationTime type
func (c CreationTime) Value() (driver.Value, error) {
	if c.Time().IsZero() {
		return time.Now(), nil
	}
	return c.Time(), nil
}

// Scan implements the sql.Scanner interface for the CreationTime type
func (c *CreationTime) Scan(i interface{}) error {
	if i == nil {
		*c = CreationTime{}
		return nil
	}
	t, ok := i.(time.Time)
	if !ok {
		return fmt.Errorf("invalid creation time: %v - %T", i, i)
	}
	*c = CreationTime(t)
	return nil
}

// Time returns the time.Time value of the LastUpdatedTime
func (l LastUpdatedTime) Time() time.Time {
	return time.Time(l)
}

// MarshalJSON returns the JSON representation of the LastUpdatedTime
func (l LastUpdatedTime) MarshalJSON() ([]byte, error) {
	return l.Time().MarshalJSON()
}

// UnmarshalJSON sets the LastUpdatedTime from its JSON representation
func (l *LastUpdatedTime) UnmarshalJSON(b []byte) error {
	t := time.Time{}
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	*l = LastUpdatedTime(t)
	return nil
}

// Value implements the driver.Valuer interface for the LastUpdatedTime type
func (l LastUpdatedTime) Value() (driver.Value, error) {
	return time.Now(), nil
}

// Scan implements the sql.Scanner interface for the LastUpdatedTime type
func (l *LastUpdatedTime) Scan(i interface{}) error {
	if i == nil {
		*l = LastUpdatedTime{}
		return nil
	}
	t, ok := i.(time.Time)
	if !ok {
		return fmt.Errorf("invalid last updated time: %v - %T", i, i)
	}
	*l = LastUpdatedTime(t)
	return nil
}

func (n NullString) String() string {
	return string(n)
}

// Value implements the driver.Valuer interface for the NullString type
func (n NullString) Value() (driver.Value, error) {
	if n == "" {
		return nil, nil
	}
	return n.String(), nil
}

// Scan implements the sql.Scanner interface for the NullString type
func (n *NullString) Scan(i interface{}) error {
	if i == nil {
		*n = NullString("")
		return nil
	}
	switch v := i.(type) {
	case string:
		*n = NullString(v)
	case []byte:
		*n = NullString(v)
	default:
		return fmt.Errorf("invalid null string: %v - %T", i, i)
	}
	return nil
}
