package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// ServerFields 提供服务器名称、根地址与鉴权模式字段，密码永不写入日志。
func ServerFields(name, baseURL, authMode string) logrus.Fields {
	return logrus.Fields{
		"server":    name,
		"base_url":  baseURL,
		"auth_mode": authMode,
	}
}

// RequestFields 提供控制接口请求日志的公共字段。
func RequestFields(requestID, method, path string, status int) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
		"status":     status,
	}
}
