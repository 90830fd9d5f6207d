/*
Copyright 2025 Vidforge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidforge/vidforge/internal/apierror"
)

// SweepNow triggers one orphan sweep outside the cron schedule. The sweep
// still goes through the distributed lock, so a run that overlaps the
// scheduled one is skipped rather than doubled.
func (a Api) SweepNow(c *gin.Context) {
	if err := a.vidforge.SweepOnce(c.Request.Context()); err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"swept": true})
}
