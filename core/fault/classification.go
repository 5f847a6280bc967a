/*
 * === This file is part of AESOP-Lite Control ===
 *
 * Copyright 2019-2024 the AESOP-Lite collaboration.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package fault

type Classification int

const (
	TOLERATED Classification = iota
	CRITICAL
)

var _names = []string{
	"TOLERATED",
	"CRITICAL",
}

func (c Classification) String() string {
	if c < TOLERATED || c > CRITICAL {
		return "TOLERATED"
	}
	return _names[c]
}

func ClassificationFromString(s string) Classification {
	for i, v := range _names {
		if s == v {
			return Classification(i)
		}
	}
	return TOLERATED
}
