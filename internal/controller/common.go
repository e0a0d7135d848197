package controller

import (
	"classroom_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// identity 取出 AuthMiddleware 写入的调用方身份
func identity(ctx *gin.Context) (util.Identity, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return util.Identity{}, false
	}
	return claims.Identity(), true
}

func uintParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
