// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"errors"
	"net/http"
	"strconv"
)

const (
	DefaultPaginationCount = 100
	MaxPaginationCount     = 1000
	DefaultPaginationPage  = 1
)

var ErrInvalidPaginationParameters = errors.New(
	"invalid pagination parameters",
)

// PaginationParams contains parsed pagination query values
type PaginationParams struct {
	Count int
	Page  int
}

// Offset returns the number of items preceding the requested page
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Count
}

// ParsePagination parses the count and page query parameters and applies
// defaults and bounds clamping
func ParsePagination(r *http.Request) (PaginationParams, error) {
	params := PaginationParams{
		Count: DefaultPaginationCount,
		Page:  DefaultPaginationPage,
	}
	query := r.URL.Query()
	if countParam := query.Get("count"); countParam != "" {
		count, err := strconv.Atoi(countParam)
		if err != nil {
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
		params.Count = count
	}
	if pageParam := query.Get("page"); pageParam != "" {
		page, err := strconv.Atoi(pageParam)
		if err != nil {
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
		params.Page = page
	}
	// Bounds clamping
	if params.Count < 1 {
		params.Count = 1
	}
	if params.Count > MaxPaginationCount {
		params.Count = MaxPaginationCount
	}
	if params.Page < 1 {
		params.Page = 1
	}
	// Keep the offset representable
	if params.Page > maxPage(params.Count) {
		return PaginationParams{}, ErrInvalidPaginationParameters
	}
	return params, nil
}

func maxPage(count int) int {
	return (1<<31-1)/count + 1
}
