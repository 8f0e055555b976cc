package models

// Outcome is the result envelope every service operation returns to its caller.
type Outcome struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

// Succeeded builds a successful outcome.
func Succeeded(message string, data interface{}) *Outcome {
	return &Outcome{Success: true, Data: data, Message: message}
}

// Failed builds a non-throwing failure outcome, used where callers branch on the payload.
func Failed(message string, data interface{}) *Outcome {
	return &Outcome{Success: false, Data: data, Message: message}
}

// Message codes
const (
	MsgUserNotFound          = "USER_NOT_FOUND"
	MsgUserNotActive         = "USER_NOT_ACTIVE"
	MsgAccountLockedDefault  = "ACCOUNT_LOCKED_DEFAULT"
	MsgAccountLocked         = "ACCOUNT_LOCKED"
	MsgAccountUnlocked       = "ACCOUNT_UNLOCKED"
	MsgEmailPasswordWrong    = "EMAIL_PASSWORD_INCORRECT"
	MsgFailed3Attempts       = "FAILED_3_ATTEMPTS"
	MsgFailed4Attempts       = "FAILED_4_ATTEMPTS"
	MsgNoAccountWithEmail    = "NO_ACCOUNT_WITH_EMAIL"
	MsgNoAccountFound        = "NO_ACCOUNT_FOUND"
	MsgUserExist             = "USER_EXIST"
	MsgUserLoginSuccessfully = "USER_LOGIN_SUCCESSFULLY"
	MsgConcurrentUpdate      = "CONCURRENT_UPDATE"

	MsgOtpGenerated          = "OTP_GENERATED"
	MsgOtpVerified           = "OTP_VERIFIED"
	MsgIncorrectOtpManyTimes = "INCORRECT_OTP_MANYTIMES"
	MsgCodeNotWork           = "CODE_NOT_WORK"
	MsgCodeExpired           = "CODE_EXPIRED"
	MsgTooManyOtpRequests    = "TOO_MANY_OTP_REQUESTS"

	MsgTokenInvalid               = "TOKEN_INVALID"
	MsgTokenGenerated             = "TOKEN_GENERATED"
	MsgAccessTokenGenerated       = "ACCESS_TOKEN_GENERATED_SUCCESSFULLY"
	MsgUserNotRegistered          = "USER_NOT_REGISTERED"
	MsgMobileNoInvalid            = "MOBILE_NO_INVALID"
	MsgPasswordChanged            = "PASSWORD_CHANGED_SUCCESSFULLY"
	MsgResetLinkInvalid           = "RESET_PASSWORD_LINK_INVALID"
	MsgResetLinkUsed              = "RESET_PASSWORD_LINK_USED"
	MsgInitialResetCheckSucceeded = "INITIAL_PASSWORD_RESET_CHECK_SUCCESSFUL"
	MsgRolesPermissionsRetrieved  = "USER_ROLES_PERMISSIONS_RETRIEVED_SUCCESSFULLY"

	MsgEmailAlreadyUsed     = "EMAIL_ALREADY_USED"
	MsgWeakPassword         = "WEAK_PASSWORD"
	MsgMobileInvalid        = "MOBILE_INVALID"
	MsgUserTypeRequired     = "USER_TYPE_REQUIRED"
	MsgAgencyRequired       = "AGENCY_REQUIRED"
	MsgUserCreationFailed   = "USER_CREATION_FAILED"
	MsgUserWithEmailExist   = "USER_WITH_EMAIL_EXIST"
	MsgUserRegistered       = "USER_REGISTER_SUCCESSFUL"
	MsgUsersRetrieved       = "USERS_RETRIEVED_SUCCESSFULLY"
	MsgUserTypesAndAgencies = "USER_TYPES_AND_AGENCIES_RETRIEVED_SUCCESSFULLY"

	MsgLoginHistoryCreated = "LOGIN_HISTORY_CREATED_SUCCESSFULLY"

	MsgUserGroupsRetrieved = "USER_GROUPS_RETRIEVED_SUCCESSFULLY"
	MsgNoUserGroupsFound   = "NO_USER_GROUPS_FOUND"
	MsgInvalidModuleID     = "INVALID_MODULE_ID"
	MsgInvalidInterfaceID  = "INVALID_INTERFACE_ID"
	MsgInvalidPermissionID = "INVALID_PERMISSION_ID"
	MsgModulePermExists    = "MODULE_PERMISSION_ALREADY_EXISTS"
	MsgModulePermCreated   = "MODULE_INTERFACE_PERMISSION_CREATED_SUCCESSFULLY"
	MsgModulesRetrieved    = "MODULES_RETRIEVED_SUCCESSFULLY"
	MsgNextRoleCode        = "NEXT_ROLE_CODE_GENERATED_SUCCESSFULLY"
	MsgRoleAlreadyExists   = "ROLE_ALREADY_EXISTS"
	MsgRoleCreated         = "ROLE_CREATED_SUCCESSFULLY"
	MsgRoleNotFound        = "ROLE_NOT_FOUND"
	MsgRoleRetrieved       = "ROLE_RETRIEVED_SUCCESSFULLY"
	MsgRoleUpdated         = "ROLE_UPDATED_SUCCESSFULLY"
	MsgErrorUpdatingRole   = "ERROR_UPDATING_ROLE"
	MsgRolesRetrieved      = "ROLES_RETRIEVED_SUCCESSFULLY"
	MsgNoRolesFound        = "NO_ROLES_FOUND"

	MsgServerSideError = "SERVERSIDE_ERROR_OCCURED"
)
