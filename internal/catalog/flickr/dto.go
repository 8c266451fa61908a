package flickr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// flexNumber accepts a JSON number or a JSON string holding a number.
//
// The REST API is inconsistent: coordinates arrive as "51.454513",
// page counts sometimes as 3 and sometimes as "3". An empty string or null
// decodes to an unset value.
type flexNumber struct {
	raw string
	set bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = flexNumber{}
		return nil
	}

	s := string(data)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = flexNumber{}
			return nil
		}
	}

	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	*n = flexNumber{raw: s, set: true}
	return nil
}

// Float returns the value and whether it was present.
func (n flexNumber) Float() (float64, bool) {
	if !n.set {
		return 0, false
	}
	f, err := strconv.ParseFloat(n.raw, 64)
	return f, err == nil
}

// Int returns the value truncated to an int, or 0 when absent.
func (n flexNumber) Int() int {
	f, _ := n.Float()
	return int(f)
}

// content is the {"_content": "..."} wrapper used for text attributes.
type content struct {
	Content string `json:"_content"`
}

type envelope struct {
	Stat    string `json:"stat"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type photoList struct {
	Photos struct {
		Page  flexNumber   `json:"page"`
		Pages flexNumber   `json:"pages"`
		Photo []listedItem `json:"photo"`
	} `json:"photos"`
}

type listedItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type permsResponse struct {
	Perms struct {
		ID       string     `json:"id"`
		IsPublic flexNumber `json:"ispublic"`
		IsFriend flexNumber `json:"isfriend"`
		IsFamily flexNumber `json:"isfamily"`
	} `json:"perms"`
}

type sizesResponse struct {
	Sizes struct {
		Size []struct {
			Label  string     `json:"label"`
			Width  flexNumber `json:"width"`
			Height flexNumber `json:"height"`
			Source string     `json:"source"`
		} `json:"size"`
	} `json:"sizes"`
}

type infoResponse struct {
	Photo struct {
		ID          string  `json:"id"`
		Title       content `json:"title"`
		Description content `json:"description"`
		Tags        struct {
			Tag []struct {
				Raw     string `json:"raw"`
				Content string `json:"_content"`
			} `json:"tag"`
		} `json:"tags"`
	} `json:"photo"`
}

type locationResponse struct {
	Photo struct {
		Location struct {
			Latitude  flexNumber `json:"latitude"`
			Longitude flexNumber `json:"longitude"`
			Locality  content    `json:"locality"`
			Region    content    `json:"region"`
			Country   content    `json:"country"`
		} `json:"location"`
	} `json:"photo"`
}

type loginResponse struct {
	User struct {
		ID       string  `json:"id"`
		Username content `json:"username"`
	} `json:"user"`
}
