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
	"github.com/gin-gonic/gin"

	"github.com/vidforge/vidforge"
	"github.com/vidforge/vidforge/api/middleware"
	"github.com/vidforge/vidforge/config"
)

type Api struct {
	vidforge *vidforge.Vidforge
	router   *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	// The provider authenticates with the shared secret only; it has no
	// account header, so callback routes sit outside the account guard.
	router.POST("/callbacks/provider", a.ProviderCallback)

	accountRoutes := router.Group("/", middleware.AccountRequiredMiddleware())
	accountRoutes.POST("/videos", a.CreateVideo)
	accountRoutes.GET("/videos", a.GetAllVideos)
	accountRoutes.GET("/videos/:id", a.GetVideo)
	accountRoutes.GET("/videos/:id/status", a.GetVideoStatus)

	accountRoutes.GET("/balance", a.GetBalance)
	accountRoutes.GET("/ledger", a.GetLedgerHistory)
	accountRoutes.POST("/credits", a.TopUpCredits)

	router.POST("/admin/sweep", a.SweepNow)

	return a.router
}

func NewAPI(v *vidforge.Vidforge) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{vidforge: v, router: r}
}
