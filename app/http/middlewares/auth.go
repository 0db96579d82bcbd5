package middlewares

import (
	"github.com/gin-gonic/gin"

	"homerent/app/models/user"
	"homerent/pkg/jwt"
	"homerent/pkg/response"
)

// 上下文中保存的登录信息
const (
	ContextUserID = "current_user_id"
	ContextRole   = "current_user_role"
)

// Authenticate 解析令牌并写入上下文，未携带或无效令牌时按游客继续处理，
// 由各接口决定游客是得到空列表还是 401
func Authenticate(j *jwt.JWT) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			// websocket 握手无法自定义请求头
			if token := c.Query("token"); token != "" {
				header = "Bearer " + token
			}
		}
		if header == "" {
			c.Next()
			return
		}

		claims, err := j.ParseToken(header)
		if err != nil {
			response.Abort401(c, err.Error())
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// AuthRequired 要求已登录
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUserID(c) == "" {
			response.Abort401(c)
			return
		}
		c.Next()
	}
}

// OwnerOnly 要求房东角色
func OwnerOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUserID(c) == "" {
			response.Abort401(c)
			return
		}
		if CurrentRole(c) != user.RoleOwner {
			response.Abort403(c)
			return
		}
		c.Next()
	}
}

// CurrentUserID 当前登录用户 ID，游客为空
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// CurrentRole 当前登录用户角色
func CurrentRole(c *gin.Context) user.Role {
	return user.Role(c.GetString(ContextRole))
}
