package core

/*
miofetch — ingestion pipeline for monitor-io network monitor CSV exports
Copyright (C) 2026  miofetch authors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import "time"

// Progress milestones reported to the callback. The download phase
// interpolates from ProgressLinksDiscovered across ProgressDownloadSpan
// as chunks complete; the remaining milestones are fixed points.
const (
	ProgressLinksDiscovered = 10
	ProgressDownloadSpan    = 60
	ProgressCombining       = 75
	ProgressStandardizing   = 85
	ProgressRestructuring   = 90
	ProgressFiltering       = 95
	ProgressComplete        = 100
)

// InterChunkDelay is the pause between download chunks. The device's
// embedded web server needs breathing room between bursts.
const InterChunkDelay = 100 * time.Millisecond
