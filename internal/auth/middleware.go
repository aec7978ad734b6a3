package auth

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys for the two cookie principals: staff (lecturer/admin) and
// student. The two never mix; a browser can hold both at once.
const (
	keyUserID        = "user_id"
	keyUserName      = "user_name"
	keyUserRole      = "user_role"
	keyStudentID     = "student_id"
	keyStudentName   = "student_name"
	keyStudentNumber = "student_number"
)

// Staff is the logged-in lecturer or admin.
type Staff struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// StudentPrincipal is the logged-in student.
type StudentPrincipal struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	StudentNumber string `json:"student_number"`
}

// ReaderAuth enforces bearer JWT tokens signed with HS256, issued to tap
// readers at registration.
func ReaderAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}

// LoginStaff stores the staff principal on the cookie session.
func LoginStaff(c *gin.Context, id int64, name, role string) error {
	sess := sessions.Default(c)
	sess.Set(keyUserID, id)
	sess.Set(keyUserName, name)
	sess.Set(keyUserRole, role)
	return sess.Save()
}

// LoginStudent stores the student principal on the cookie session.
func LoginStudent(c *gin.Context, id int64, name, studentNumber string) error {
	sess := sessions.Default(c)
	sess.Set(keyStudentID, id)
	sess.Set(keyStudentName, name)
	sess.Set(keyStudentNumber, studentNumber)
	return sess.Save()
}

// Logout clears the whole cookie session.
func Logout(c *gin.Context) error {
	sess := sessions.Default(c)
	sess.Clear()
	return sess.Save()
}

// CurrentStaff returns the staff principal, if logged in.
func CurrentStaff(c *gin.Context) (Staff, bool) {
	sess := sessions.Default(c)
	id, ok := sess.Get(keyUserID).(int64)
	if !ok {
		return Staff{}, false
	}
	name, _ := sess.Get(keyUserName).(string)
	role, _ := sess.Get(keyUserRole).(string)
	return Staff{ID: id, Name: name, Role: role}, true
}

// CurrentStudent returns the student principal, if logged in.
func CurrentStudent(c *gin.Context) (StudentPrincipal, bool) {
	sess := sessions.Default(c)
	id, ok := sess.Get(keyStudentID).(int64)
	if !ok {
		return StudentPrincipal{}, false
	}
	name, _ := sess.Get(keyStudentName).(string)
	number, _ := sess.Get(keyStudentNumber).(string)
	return StudentPrincipal{ID: id, Name: name, StudentNumber: number}, true
}

// RequireLogin rejects requests without a staff session.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentStaff(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// RequireRole rejects staff sessions lacking the role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		staff, ok := CurrentStaff(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if staff.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

// RequireStudent rejects requests without a student session.
func RequireStudent() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentStudent(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
