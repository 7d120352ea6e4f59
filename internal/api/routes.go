package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/target", handler.GetTarget)
		api.PUT("/target", handler.UpdateTarget)

		api.GET("/comparables", handler.GetComparables)
		api.POST("/comparables", handler.AddComparable)
		api.PATCH("/comparables/:id", handler.UpdateComparable)
		api.DELETE("/comparables/:id", handler.DeleteComparable)

		api.GET("/stats", handler.GetStats)
		api.GET("/valuation", handler.GetValuation)

		api.GET("/valuations", handler.ListValuations)
		api.POST("/valuations", handler.SaveValuation)
		api.POST("/valuations/new", handler.NewValuation)
		api.POST("/valuations/:id/load", handler.LoadValuation)
		api.DELETE("/valuations/:id", handler.DeleteValuation)

		api.POST("/import/csv", handler.ImportCSV)
		api.POST("/import/sheet", handler.ImportSheet)
		api.GET("/export/csv", handler.ExportCSV)
		api.GET("/export/clipboard", handler.ExportClipboard)

		api.GET("/report/map", handler.GetReportMap)
	}
}
